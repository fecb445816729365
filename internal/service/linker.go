package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"SteamGuard/internal/api"
	"SteamGuard/internal/crypto"
	"SteamGuard/internal/errs"
	"SteamGuard/internal/model"
	"SteamGuard/internal/repo"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LinkResult — исход AddAuthenticator.
type LinkResult int

const (
	LinkGeneralFailure LinkResult = iota
	LinkAwaitingFinalization
	LinkMustProvidePhoneNumber
	LinkMustConfirmEmail
	LinkAuthenticatorPresent
)

func (r LinkResult) String() string {
	switch r {
	case LinkAwaitingFinalization:
		return "AwaitingFinalization"
	case LinkMustProvidePhoneNumber:
		return "MustProvidePhoneNumber"
	case LinkMustConfirmEmail:
		return "MustConfirmEmail"
	case LinkAuthenticatorPresent:
		return "AuthenticatorPresent"
	default:
		return "GeneralFailure"
	}
}

// FinalizeResult — исход FinalizeAddAuthenticator.
type FinalizeResult int

const (
	FinalizeGeneralFailure FinalizeResult = iota
	FinalizeSuccess
	FinalizeBadSMSCode
	FinalizeUnableToGenerateCorrectCodes
)

func (r FinalizeResult) String() string {
	switch r {
	case FinalizeSuccess:
		return "Success"
	case FinalizeBadSMSCode:
		return "BadSMSCode"
	case FinalizeUnableToGenerateCorrectCodes:
		return "UnableToGenerateCorrectCodes"
	default:
		return "GeneralFailure"
	}
}

// EnrollmentState — состояние привязки.
type EnrollmentState int

const (
	StateNotStarted EnrollmentState = iota
	StateRequesting
	StateAwaitingFinalization
	StateMustProvidePhoneNumber
	StateMustConfirmEmail
	StateAuthenticatorPresent
	StateFinalizing
	StateSuccess
	StateBadSMSCode
	StateUnableToGenerateCorrectCodes
	StateGeneralFailure
)

var stateNames = map[EnrollmentState]string{
	StateNotStarted:                   "NotStarted",
	StateRequesting:                   "Requesting",
	StateAwaitingFinalization:         "AwaitingFinalization",
	StateMustProvidePhoneNumber:       "MustProvidePhoneNumber",
	StateMustConfirmEmail:             "MustConfirmEmail",
	StateAuthenticatorPresent:         "AuthenticatorPresent",
	StateFinalizing:                   "Finalizing",
	StateSuccess:                      "Success",
	StateBadSMSCode:                   "BadSMSCode",
	StateUnableToGenerateCorrectCodes: "UnableToGenerateCorrectCodes",
	StateGeneralFailure:               "GeneralFailure",
}

func (s EnrollmentState) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("EnrollmentState(%d)", int(s))
}

// maxFinalizeExchanges — сколько раз сервер может попросить want_more за один Finalize.
const maxFinalizeExchanges = 30

// EmailConfirmer ждёт, пока пользователь подтвердит привязку телефона по ссылке из письма.
type EmailConfirmer interface {
	ConfirmEmail(ctx context.Context, address string) error
}

// EmailConfirmerFunc — функция как EmailConfirmer.
type EmailConfirmerFunc func(ctx context.Context, address string) error

func (f EmailConfirmerFunc) ConfirmEmail(ctx context.Context, address string) error {
	return f(ctx, address)
}

// EnrollmentSession — временное состояние одной попытки привязки.
type EnrollmentSession struct {
	PhoneNumber              string
	PhoneCountryCode         string
	ConfirmationEmailAddress string
	State                    EnrollmentState
	Attempts                 int
	FinalizeAttempts         int

	terminal  bool
	emailSent bool
	smsSent   bool
	persisted bool
}

// LinkerOptions — зависимости и параметры Linker.
type LinkerOptions struct {
	API     EnrollmentAPI
	Clock   Clock
	Store   repo.AccountStore
	Session *model.Session

	PhoneNumber      string
	PhoneCountryCode string

	// Path — ключ записи в хранилище; по умолчанию repo.DefaultPath.
	Path           string
	EmailConfirmer EmailConfirmer
	Policy         RetryPolicy
	Logger         *zap.SugaredLogger

	// NewDeviceID генерирует идентификатор устройства; по умолчанию android:<uuid>.
	NewDeviceID func() string
}

// Linker ведёт привязку аутентификатора к одному аккаунту.
// Одновременно выполняется не больше одного обмена с сервером; параллельный вызов получает ErrState.
type Linker struct {
	api     EnrollmentAPI
	clock   Clock
	store   repo.AccountStore
	session model.Session
	path    string
	confirm EmailConfirmer
	policy  RetryPolicy
	log     *zap.SugaredLogger

	deviceID string

	mu  sync.Mutex
	es  EnrollmentSession
	rec *model.AccountRecord
}

// NewLinker создаёт Linker. Session, API, Clock и Store обязательны.
func NewLinker(opts LinkerOptions) (*Linker, error) {
	if opts.Session == nil || opts.Session.AccessToken == "" || opts.Session.SteamID == 0 {
		return nil, errors.New("linker: session with steamid and access token required")
	}
	if opts.API == nil || opts.Clock == nil || opts.Store == nil {
		return nil, errors.New("linker: api, clock and store are required")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	newDevice := opts.NewDeviceID
	if newDevice == nil {
		newDevice = NewDeviceID
	}
	return &Linker{
		api:      opts.API,
		clock:    opts.Clock,
		store:    opts.Store,
		session:  *opts.Session,
		path:     opts.Path,
		confirm:  opts.EmailConfirmer,
		policy:   opts.Policy,
		log:      log.With("steamid", opts.Session.SteamID),
		deviceID: newDevice(),
		es: EnrollmentSession{
			PhoneNumber:      opts.PhoneNumber,
			PhoneCountryCode: opts.PhoneCountryCode,
			State:            StateNotStarted,
		},
	}, nil
}

// NewDeviceID возвращает идентификатор устройства вида android:<uuid>.
func NewDeviceID() string {
	return "android:" + uuid.NewString()
}

// State возвращает текущее состояние привязки.
func (l *Linker) State() EnrollmentState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.es.State
}

// Session возвращает копию EnrollmentSession.
func (l *Linker) Session() EnrollmentSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.es
}

// LinkedAccount возвращает копию полученной записи аккаунта (nil до AwaitingFinalization).
func (l *Linker) LinkedAccount() *model.AccountRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rec.Clone()
}

// Path возвращает ключ записи в хранилище.
func (l *Linker) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recordPath()
}

func (l *Linker) recordPath() string {
	if l.path != "" {
		return l.path
	}
	return repo.DefaultPath(l.rec)
}

// AddAuthenticator запрашивает привязку нового аутентификатора.
//
// При AwaitingFinalization запись уже сохранена в хранилище; если сохранить
// не удалось, возвращается ошибка с ErrRecordNotPersisted, а запись доступна
// через LinkedAccount и может быть сохранена повторно через Persist.
func (l *Linker) AddAuthenticator(ctx context.Context) (LinkResult, error) {
	if !l.mu.TryLock() {
		return LinkGeneralFailure, fmt.Errorf("add authenticator: exchange in flight: %w", errs.ErrState)
	}
	defer l.mu.Unlock()

	switch {
	case l.es.State == StateNotStarted, l.es.State == StateMustConfirmEmail:
	case l.es.State == StateGeneralFailure && !l.es.terminal && l.rec == nil:
	default:
		return LinkGeneralFailure, fmt.Errorf("add authenticator in state %s: %w", l.es.State, errs.ErrState)
	}

	limit := l.policy.Attempts()
	var lastErr error
	for {
		if l.es.Attempts >= limit {
			l.fail()
			l.log.Warnw("add authenticator: attempts exhausted", "attempts", l.es.Attempts, "error", lastErr)
			return LinkGeneralFailure, exhausted("add authenticator", lastErr)
		}
		l.es.Attempts++
		l.es.State = StateRequesting

		res, err := l.addOnce(ctx)
		l.log.Infow("add authenticator", "attempt", l.es.Attempts, "result", res.String())

		switch res {
		case LinkAwaitingFinalization:
			l.es.State = StateAwaitingFinalization
			if err := l.persist(ctx); err != nil {
				return res, err
			}
			return res, nil
		case LinkMustProvidePhoneNumber:
			l.es.State = StateMustProvidePhoneNumber
			l.es.terminal = true
			return res, nil
		case LinkAuthenticatorPresent:
			l.es.State = StateAuthenticatorPresent
			l.es.terminal = true
			return res, nil
		case LinkMustConfirmEmail:
			l.es.State = StateMustConfirmEmail
			if l.confirm == nil {
				return res, nil
			}
			if err := l.confirm.ConfirmEmail(ctx, l.es.ConfirmationEmailAddress); err != nil {
				return res, fmt.Errorf("confirm email: %w", err)
			}
			continue
		}

		// GeneralFailure
		l.es.State = StateGeneralFailure
		lastErr = err
		if fatal(ctx, err) {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				l.es.terminal = true
			}
			return res, fmt.Errorf("add authenticator: %w", err)
		}
		if l.es.Attempts >= limit {
			continue
		}
		if err := l.policy.Wait(ctx, l.es.Attempts); err != nil {
			return res, fmt.Errorf("add authenticator: %w", err)
		}
	}
}

// addOnce выполняет один проход: при необходимости ведёт привязку телефона и запрашивает аутентификатор.
func (l *Linker) addOnce(ctx context.Context) (LinkResult, error) {
	token := l.session.AccessToken

	if l.es.emailSent && !l.es.smsSent {
		waiting, err := l.api.IsAccountWaitingForEmailConfirmation(ctx, token)
		if err != nil {
			return LinkGeneralFailure, err
		}
		if waiting.AwaitingEmailConfirmation {
			return LinkMustConfirmEmail, nil
		}
		if err := l.api.SendPhoneVerificationCode(ctx, token); err != nil {
			return LinkGeneralFailure, err
		}
		l.es.smsSent = true
	}

	resp, err := l.api.AddAuthenticator(ctx, token, api.AddAuthenticatorRequest{
		SteamID:           l.session.SteamID,
		AuthenticatorTime: l.clock.Now(ctx),
		DeviceID:          l.deviceID,
	})
	if err != nil {
		return LinkGeneralFailure, err
	}

	switch resp.Status {
	case api.StatusOK:
		l.rec = l.capture(resp)
		return LinkAwaitingFinalization, nil
	case api.StatusMustProvidePhone:
		if l.es.PhoneNumber == "" || l.es.emailSent {
			return LinkMustProvidePhoneNumber, nil
		}
		return l.attachPhone(ctx)
	case api.StatusAuthenticatorPresent:
		return LinkAuthenticatorPresent, nil
	default:
		return LinkGeneralFailure, fmt.Errorf("add authenticator status %d: %w", resp.Status, errs.ErrProtocol)
	}
}

// attachPhone привязывает телефон к аккаунту; сервер присылает письмо для подтверждения.
func (l *Linker) attachPhone(ctx context.Context) (LinkResult, error) {
	token := l.session.AccessToken
	country := l.es.PhoneCountryCode
	if country == "" {
		c, err := l.api.GetUserCountry(ctx, token, l.session.SteamID)
		if err != nil {
			return LinkGeneralFailure, err
		}
		country = c
		l.es.PhoneCountryCode = c
	}
	resp, err := l.api.SetAccountPhoneNumber(ctx, token, l.es.PhoneNumber, country)
	if err != nil {
		return LinkGeneralFailure, err
	}
	l.es.ConfirmationEmailAddress = resp.ConfirmationEmailAddress
	l.es.emailSent = true
	return LinkMustConfirmEmail, nil
}

func (l *Linker) capture(resp *api.AddAuthenticatorResponse) *model.AccountRecord {
	session := l.session
	return &model.AccountRecord{
		AccountName:    resp.AccountName,
		SharedSecret:   resp.SharedSecret,
		IdentitySecret: resp.IdentitySecret,
		RevocationCode: resp.RevocationCode,
		DeviceID:       l.deviceID,
		SerialNumber:   resp.SerialNumber,
		URI:            resp.URI,
		TokenGID:       resp.TokenGID,
		Secret1:        resp.Secret1,
		ServerTime:     int64(resp.ServerTime),
		Status:         resp.Status,
		Session:        &session,
	}
}

// Persist повторно сохраняет полученную запись (после ошибки сохранения в AddAuthenticator).
func (l *Linker) Persist(ctx context.Context) error {
	if !l.mu.TryLock() {
		return fmt.Errorf("persist: exchange in flight: %w", errs.ErrState)
	}
	defer l.mu.Unlock()
	if l.rec == nil {
		return fmt.Errorf("persist: no linked account: %w", errs.ErrState)
	}
	return l.persist(ctx)
}

func (l *Linker) persist(ctx context.Context) error {
	path := l.recordPath()
	if err := l.store.Save(ctx, l.rec.Clone(), path); err != nil {
		l.es.persisted = false
		l.log.Errorw("account record not persisted", "path", path, "error", err)
		return fmt.Errorf("save %s: %v: %w", path, err, errs.ErrRecordNotPersisted)
	}
	l.es.persisted = true
	l.log.Infow("account record persisted", "path", path, "fully_enrolled", l.rec.FullyEnrolled)
	return nil
}

// FinalizeAddAuthenticator завершает привязку кодом из SMS.
// Допустим только после AwaitingFinalization и успешного сохранения записи.
func (l *Linker) FinalizeAddAuthenticator(ctx context.Context, smsCode string) (FinalizeResult, error) {
	if !l.mu.TryLock() {
		return FinalizeGeneralFailure, fmt.Errorf("finalize: exchange in flight: %w", errs.ErrState)
	}
	defer l.mu.Unlock()

	if l.rec == nil || l.es.terminal ||
		(l.es.State != StateAwaitingFinalization && l.es.State != StateBadSMSCode && l.es.State != StateGeneralFailure) {
		return FinalizeGeneralFailure, fmt.Errorf("finalize in state %s: %w", l.es.State, errs.ErrState)
	}
	if !l.es.persisted {
		return FinalizeGeneralFailure, fmt.Errorf("finalize before record persisted: %w", errs.ErrState)
	}

	limit := l.policy.Attempts()
	var lastErr error
	for {
		if l.es.FinalizeAttempts >= limit {
			l.fail()
			l.log.Warnw("finalize: attempts exhausted, authenticator inactive", "attempts", l.es.FinalizeAttempts, "error", lastErr)
			return FinalizeGeneralFailure, exhausted("finalize", lastErr)
		}
		l.es.FinalizeAttempts++
		l.es.State = StateFinalizing

		res, err := l.finalizeOnce(ctx, smsCode)
		l.log.Infow("finalize authenticator", "attempt", l.es.FinalizeAttempts, "result", res.String())

		switch res {
		case FinalizeSuccess:
			l.es.State = StateSuccess
			l.es.terminal = true
			l.rec.FullyEnrolled = true
			if err := l.persist(ctx); err != nil {
				return res, err
			}
			return res, nil
		case FinalizeBadSMSCode:
			l.es.State = StateBadSMSCode
			return res, nil
		case FinalizeUnableToGenerateCorrectCodes:
			l.es.State = StateUnableToGenerateCorrectCodes
			l.es.terminal = true
			return res, nil
		}

		l.es.State = StateGeneralFailure
		lastErr = err
		if fatal(ctx, err) {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				l.es.terminal = true
			}
			return res, fmt.Errorf("finalize: %w", err)
		}
		if l.es.FinalizeAttempts >= limit {
			continue
		}
		if err := l.policy.Wait(ctx, l.es.FinalizeAttempts); err != nil {
			return res, fmt.Errorf("finalize: %w", err)
		}
	}
}

// finalizeOnce отправляет код из SMS и коды аутентификатора, пока сервер просит want_more.
func (l *Linker) finalizeOnce(ctx context.Context, smsCode string) (FinalizeResult, error) {
	ts := l.clock.Now(ctx)
	for i := 0; i < maxFinalizeExchanges; i++ {
		code, err := crypto.GenerateCode(l.rec.SharedSecret, ts)
		if err != nil {
			return FinalizeGeneralFailure, err
		}
		resp, err := l.api.FinalizeAddAuthenticator(ctx, l.session.AccessToken, api.FinalizeRequest{
			SteamID:           l.session.SteamID,
			AuthenticatorCode: code,
			AuthenticatorTime: ts,
			ActivationCode:    smsCode,
		})
		if err != nil {
			return FinalizeGeneralFailure, err
		}
		switch {
		case resp.Status == api.StatusBadSMSCode:
			return FinalizeBadSMSCode, nil
		// 88 без success: код не принят, пробуем следующий шаг времени в пределах maxFinalizeExchanges
		case resp.Status == api.StatusUnableToGenerateCode, resp.WantMore:
			ts += crypto.CodePeriod
			continue
		case resp.Success:
			return FinalizeSuccess, nil
		default:
			return FinalizeGeneralFailure, fmt.Errorf("finalize status %d: %w", resp.Status, errs.ErrProtocol)
		}
	}
	return FinalizeUnableToGenerateCorrectCodes, nil
}

func (l *Linker) fail() {
	l.es.State = StateGeneralFailure
	l.es.terminal = true
}

// fatal — ошибки, после которых повтор с теми же параметрами бессмыслен.
func fatal(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, errs.ErrAuthorization) || errors.Is(err, errs.ErrInvalidSecret)
}

func exhausted(op string, last error) error {
	if last == nil {
		return fmt.Errorf("%s: %w", op, errs.ErrAttemptsExhausted)
	}
	return fmt.Errorf("%s: %w (last error: %v)", op, errs.ErrAttemptsExhausted, last)
}
