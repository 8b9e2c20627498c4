// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
	"time"
)

// Status はエンティティの有効状態を表す。
// 論理削除はStatusInactiveへの遷移で表現する。
type Status string

const (
	// StatusActive は有効な状態。
	StatusActive Status = "ACTIVE"
	// StatusInactive は無効化（論理削除）された状態。
	StatusInactive Status = "INACTIVE"
)

// Valid はStatusが定義済みの値かどうかを返す。
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// ProviderName はOAuthプロバイダーの識別子。
type ProviderName string

const (
	// ProviderGitHub はGitHub OAuth。
	ProviderGitHub ProviderName = "GITHUB"
	// ProviderKakao はKakao OAuth。
	ProviderKakao ProviderName = "KAKAO"
)

// ParseProviderName はURLパス等の文字列からProviderNameを解決する。
// 大文字小文字は区別しない。
func ParseProviderName(s string) (ProviderName, error) {
	switch ProviderName(strings.ToUpper(strings.TrimSpace(s))) {
	case ProviderGitHub:
		return ProviderGitHub, nil
	case ProviderKakao:
		return ProviderKakao, nil
	default:
		return "", fmt.Errorf("unknown provider: %q", s)
	}
}

// Slug はURLで使用する小文字のプロバイダー名を返す。
func (p ProviderName) Slug() string {
	return strings.ToLower(string(p))
}

// User はサービス利用ユーザーを表す。
// 同一(Email, ProviderName)でStatusActiveのユーザーは高々1件。
type User struct {
	ID           int64        `db:"id"`
	Username     string       `db:"username"`
	Nickname     string       `db:"nickname"`
	Email        string       `db:"email"`
	ProviderName ProviderName `db:"provider_name"`
	Status       Status       `db:"status"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

// IsActive はユーザーが有効かどうかを返す。
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// Deactivate はユーザーを無効化する（退会）。
func (u *User) Deactivate() {
	u.Status = StatusInactive
}

// Activate はユーザーを再有効化する。
func (u *User) Activate() {
	u.Status = StatusActive
}

// LoginResponse はログイン成功時にクライアントへ返す値。
type LoginResponse struct {
	UserID int64  `json:"userId"`
	Token  string `json:"token"`
}
