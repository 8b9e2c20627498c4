// Package auth はOAuthログインフロー（認可コード交換、プロフィール取得、
// ユーザー照合、セッショントークン発行）を提供する。
package auth

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/studyplatform/internal/metrics"
	"github.com/hitoshi/studyplatform/internal/model"
	"github.com/hitoshi/studyplatform/internal/repository"
)

// OAuthProvider はOAuthプロバイダー1件分の操作。
type OAuthProvider interface {
	Name() model.ProviderName
	// GetLoginURL はプロバイダーの同意画面URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをアクセストークンに交換する。
	ExchangeCode(ctx context.Context, code string) (string, error)
	// FetchProfile はアクセストークンでユーザー情報を取得する。
	FetchProfile(ctx context.Context, accessToken string) (Profile, error)
	// Identity はプロフィールからemailと表示名を取り出す。
	Identity(p Profile) (email, name string)
}

// TokenIssuer はユーザーIDからセッショントークンを発行する。
type TokenIssuer interface {
	Issue(userID int64) (string, error)
}

// LoginStage はログインフローの状態。
// AWAITING_CODE から SESSION_ISSUED まで一方向にのみ進み、失敗時は FAILURE で終了する。
type LoginStage string

const (
	StageAwaitingCode    LoginStage = "awaiting_code"
	StageTokenObtained   LoginStage = "token_obtained"
	StageProfileObtained LoginStage = "profile_obtained"
	StageUserResolved    LoginStage = "user_resolved"
	StageSessionIssued   LoginStage = "session_issued"
	StageFailure         LoginStage = "failure"
)

// nicknameSeparator はemailのローカル部と乱数の間に入れる文字。
const nicknameSeparator = "k"

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	providers *Registry
	users     repository.UserRepository
	tokens    TokenIssuer
	metrics   metrics.MetricsCollector
	randIntn  func(n int) int
}

// NewService はServiceを生成する。collectorがnilの場合はメトリクスを記録しない。
func NewService(
	providers *Registry,
	users repository.UserRepository,
	tokens TokenIssuer,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		providers: providers,
		users:     users,
		tokens:    tokens,
		metrics:   collector,
		randIntn:  rand.IntN,
	}
}

// GetLoginURL は指定プロバイダーの同意画面URLを生成する。
func (s *Service) GetLoginURL(provider model.ProviderName, state string) (string, error) {
	p, err := s.providers.Get(provider)
	if err != nil {
		return "", err
	}
	return p.GetLoginURL(state), nil
}

// Login は認可コードからセッショントークンを発行する。
// 各段階の失敗でフローを打ち切り、後続の段階は実行しない。リトライは行わない。
// ユーザー作成後にトークン発行が失敗した場合、作成済みユーザーは残る。
func (s *Service) Login(ctx context.Context, provider model.ProviderName, code string) (*model.LoginResponse, error) {
	start := time.Now()
	stage := StageAwaitingCode
	label := string(provider)

	resp, err := s.login(ctx, provider, code, &stage)
	if err != nil {
		s.metrics.RecordLoginTransition(label, string(StageFailure))
		s.metrics.RecordLoginResult(label, "failure", time.Since(start))
		slog.Warn("login failed",
			slog.String("provider", label),
			slog.String("stage", string(stage)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.metrics.RecordLoginResult(label, "success", time.Since(start))
	slog.Info("login succeeded",
		slog.String("provider", label),
		slog.Int64("user_id", resp.UserID),
		slog.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

// login は状態遷移を順に実行する。stageには最後に到達した状態が入る。
func (s *Service) login(ctx context.Context, provider model.ProviderName, code string, stage *LoginStage) (*model.LoginResponse, error) {
	p, err := s.providers.Get(provider)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, model.NewValidationError("認可コードが指定されていません")
	}

	accessToken, err := p.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	s.advance(provider, stage, StageTokenObtained)

	profile, err := p.FetchProfile(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	s.advance(provider, stage, StageProfileObtained)

	email, name := p.Identity(profile)
	userID, err := s.Reconcile(ctx, provider, email, name)
	if err != nil {
		return nil, err
	}
	s.advance(provider, stage, StageUserResolved)

	token, err := s.tokens.Issue(userID)
	if err != nil {
		return nil, &model.IntegrationError{Provider: provider, Op: "session_issue", Err: err}
	}
	s.advance(provider, stage, StageSessionIssued)

	return &model.LoginResponse{UserID: userID, Token: token}, nil
}

func (s *Service) advance(provider model.ProviderName, stage *LoginStage, next LoginStage) {
	*stage = next
	s.metrics.RecordLoginTransition(string(provider), string(next))
	slog.Debug("login stage", slog.String("provider", string(provider)), slog.String("stage", string(next)))
}

// Reconcile はemailとプロバイダーで有効ユーザーを検索し、存在しなければ作成する。
// emailが空の場合はストレージにアクセスせずに失敗する。
// 同時ログインで作成が競合した場合は、先行して作成されたユーザーのIDを返す。
func (s *Service) Reconcile(ctx context.Context, provider model.ProviderName, email, name string) (int64, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return 0, model.NewValidationError("プロバイダーのプロフィールにemailが含まれていません")
	}

	existing, err := s.users.FindActiveByEmailAndProvider(ctx, email, provider)
	if err != nil {
		return 0, asStorageError("user.find_active", err)
	}
	if existing != nil {
		slog.Info("existing user logged in",
			slog.Int64("user_id", existing.ID),
			slog.String("provider", string(provider)),
		)
		return existing.ID, nil
	}

	user := &model.User{
		Username:     name,
		Nickname:     s.nickname(email),
		Email:        email,
		ProviderName: provider,
		Status:       model.StatusActive,
	}
	id, err := s.users.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicateActiveUser) {
		winner, findErr := s.users.FindActiveByEmailAndProvider(ctx, email, provider)
		if findErr != nil {
			return 0, asStorageError("user.find_active", findErr)
		}
		if winner == nil {
			return 0, &model.StorageError{Op: "user.create", Err: err}
		}
		slog.Info("concurrent user creation resolved as lookup",
			slog.Int64("user_id", winner.ID),
			slog.String("provider", string(provider)),
		)
		return winner.ID, nil
	}
	if err != nil {
		return 0, asStorageError("user.create", err)
	}

	s.metrics.RecordUserCreated(string(provider))
	slog.Info("new user created",
		slog.Int64("user_id", id),
		slog.String("nickname", user.Nickname),
		slog.String("provider", string(provider)),
	)
	return id, nil
}

// nickname はemailのローカル部 + "k" + 0〜99の乱数を返す。重複は検査しない。
func (s *Service) nickname(email string) string {
	return localPart(email) + nicknameSeparator + strconv.Itoa(s.randIntn(100))
}

// localPart はemailの@より前を返す。
func localPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// asStorageError はerrがStorageErrorでなければ包んで返す。
func asStorageError(op string, err error) error {
	if model.IsStorageError(err) {
		return err
	}
	return &model.StorageError{Op: op, Err: err}
}
