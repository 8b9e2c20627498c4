package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, calendar, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation        = "VALIDATION_FAILED"
	ErrCodeUnknownProvider   = "UNKNOWN_PROVIDER"
	ErrCodeLoginFailed       = "LOGIN_FAILED"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeStudyNotFound     = "STUDY_NOT_FOUND"
	ErrCodeStudyInactive     = "STUDY_INACTIVE"
	ErrCodeCalendarNotFound  = "CALENDAR_NOT_FOUND"
	ErrCodeCalendarForbidden = "CALENDAR_FORBIDDEN"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
)

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力値が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewUnknownProviderError は未登録プロバイダーのエラーを生成する。
func NewUnknownProviderError(provider string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownProvider,
		Message:  fmt.Sprintf("サポートされていないログインプロバイダーです: %s", provider),
		Category: "auth",
		Action:   "GitHubまたはKakaoでログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewStudyNotFoundError はスタディが見つからない場合のエラーを生成する。
func NewStudyNotFoundError(studyID int64) *APIError {
	return &APIError{
		Code:     ErrCodeStudyNotFound,
		Message:  fmt.Sprintf("指定されたスタディが見つかりません: %d", studyID),
		Category: "calendar",
		Action:   "スタディIDを確認してください。",
	}
}

// NewStudyInactiveError は無効化されたスタディへの操作エラーを生成する。
func NewStudyInactiveError(studyID int64) *APIError {
	return &APIError{
		Code:     ErrCodeStudyInactive,
		Message:  fmt.Sprintf("スタディは無効化されています: %d", studyID),
		Category: "calendar",
		Action:   "有効なスタディを選択してください。",
	}
}

// NewCalendarNotFoundError はカレンダーが見つからない場合のエラーを生成する。
func NewCalendarNotFoundError(calendarID int64) *APIError {
	return &APIError{
		Code:     ErrCodeCalendarNotFound,
		Message:  fmt.Sprintf("指定された予定が見つかりません: %d", calendarID),
		Category: "calendar",
		Action:   "予定IDを確認してください。",
	}
}

// NewCalendarForbiddenError は作成者以外による予定変更のエラーを生成する。
func NewCalendarForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeCalendarForbidden,
		Message:  "この予定を変更する権限がありません。",
		Category: "calendar",
		Action:   "予定の作成者に依頼してください。",
	}
}

// NewUnauthorizedError は認証トークンが無い、または無効な場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewLoginFailedError は外部プロバイダーとの連携失敗によるログインエラーを生成する。
func NewLoginFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginFailed,
		Message:  "ログインに失敗しました。",
		Category: "auth",
		Action:   "しばらく待ってから再度ログインしてください。",
	}
}

// IntegrationError は外部プロバイダー呼び出しの失敗を表す。
// ネットワークエラー、非2xxレスポンス、利用不能なレスポンスを含む。
type IntegrationError struct {
	Provider ProviderName
	Op       string // "token_exchange", "profile_fetch", "session_issue"
	Err      error
}

// Error はerrorインターフェースを実装する。
func (e *IntegrationError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("integration error (%s): %v", e.Op, e.Err)
	}
	return fmt.Sprintf("integration error (%s/%s): %v", e.Provider, e.Op, e.Err)
}

// Unwrap は原因エラーを返す。
func (e *IntegrationError) Unwrap() error {
	return e.Err
}

// StorageError は永続化層の読み書き失敗を表す。
type StorageError struct {
	Op  string
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Op, e.Err)
}

// Unwrap は原因エラーを返す。
func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsIntegrationError はerrがIntegrationErrorを含むかを返す。
func IsIntegrationError(err error) bool {
	var ie *IntegrationError
	return errors.As(err, &ie)
}

// IsStorageError はerrがStorageErrorを含むかを返す。
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
