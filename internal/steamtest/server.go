// Package steamtest — локальный двойник удалённого сервиса для тестов:
// Web API привязки аутентификатора и мобильный интерфейс подтверждений.
// Проверяет подписи и коды теми же примитивами, что и клиент.
package steamtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"SteamGuard/internal/crypto"
	"SteamGuard/internal/middleware"
	"SteamGuard/internal/model"

	"github.com/go-chi/chi/v5"
)

// Пути эндпоинтов.
const (
	PathQueryTime        = "/ITwoFactorService/QueryTime/v0001/"
	PathAddAuthenticator = "/ITwoFactorService/AddAuthenticator/v1/"
	PathFinalize         = "/ITwoFactorService/FinalizeAddAuthenticator/v1/"
	PathRemove           = "/ITwoFactorService/RemoveAuthenticator/v1/"
	PathSetPhone         = "/IPhoneService/SetAccountPhoneNumber/v1/"
	PathEmailWaiting     = "/IPhoneService/IsAccountWaitingForEmailConfirmation/v1/"
	PathSendSMS          = "/IPhoneService/SendPhoneVerificationCode/v1/"
	PathUserCountry      = "/IUserAccountService/GetUserCountry/v1/"
	PathAccessToken      = "/IAuthenticationService/GenerateAccessTokenForApp/v1/"
	PathConfList         = "/mobileconf/getlist"
	PathConfOp           = "/mobileconf/ajaxop"
	PathConfMultiOp      = "/mobileconf/multiajaxop"
)

// Account — аккаунт на стороне двойника.
type Account struct {
	SteamID        uint64
	AccessToken    string
	RefreshToken   string
	AccountName    string
	SharedSecret   []byte
	IdentitySecret []byte
	RevocationCode string
	Country        string
	HasPhone       bool
}

// DefaultAccount — аккаунт с фиксированными секретами.
func DefaultAccount() Account {
	return Account{
		SteamID:        76561198000000001,
		AccessToken:    "access-token",
		RefreshToken:   "refresh-token",
		AccountName:    "alice",
		SharedSecret:   []byte("shared-secret-20bytes"),
		IdentitySecret: []byte("identity-secret-20by"),
		RevocationCode: "R12345",
		Country:        "DE",
		HasPhone:       true,
	}
}

// Server — HTTP-двойник. Все настройки потокобезопасны.
type Server struct {
	URL    string
	Router chi.Router

	ts *httptest.Server

	mu               sync.Mutex
	acct             Account
	now              int64
	tolerance        int64
	addStatuses      []int
	emailPending     int
	smsCode          string
	wantMore         int
	finalizeStatuses []int
	failures         map[string]int
	confirmations    []model.Confirmation
	enrolled         bool
	phone            string
	calls            map[string]int
	forms            map[string]url.Values
}

// NewServer запускает двойник; остановка — Close.
func NewServer(acct Account) *Server {
	s := &Server{
		acct:      acct,
		now:       1700000000,
		tolerance: 60,
		smsCode:   "12345",
		failures:  map[string]int{},
		calls:     map[string]int{},
		forms:     map[string]url.Values{},
	}

	r := chi.NewRouter()
	r.Use(middleware.WithLogging)
	r.Use(s.countAndFail)

	r.Post(PathQueryTime, s.queryTime)
	r.Post(PathAddAuthenticator, s.withToken(s.addAuthenticator))
	r.Post(PathFinalize, s.withToken(s.finalize))
	r.Post(PathRemove, s.withToken(s.remove))
	r.Post(PathSetPhone, s.withToken(s.setPhone))
	r.Post(PathEmailWaiting, s.withToken(s.emailWaiting))
	r.Post(PathSendSMS, s.withToken(s.sendSMS))
	r.Post(PathUserCountry, s.withToken(s.userCountry))
	r.Post(PathAccessToken, s.accessToken)
	r.Get(PathConfList, s.withCookie(s.confList))
	r.Get(PathConfOp, s.withCookie(s.confOp))
	r.Post(PathConfMultiOp, s.withCookie(s.confMultiOp))

	s.Router = r
	s.ts = httptest.NewServer(r)
	s.URL = s.ts.URL
	return s
}

// Close останавливает сервер.
func (s *Server) Close() { s.ts.Close() }

// SetTime задаёт серверное время.
func (s *Server) SetTime(t int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = t
}

// Time возвращает серверное время.
func (s *Server) Time() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// QueueAddStatus задаёт статусы следующих ответов AddAuthenticator; после очереди отвечает по состоянию аккаунта.
func (s *Server) QueueAddStatus(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addStatuses = append(s.addStatuses, statuses...)
}

// QueueFinalizeStatus задаёт статусы следующих ответов FinalizeAddAuthenticator.
func (s *Server) QueueFinalizeStatus(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalizeStatuses = append(s.finalizeStatuses, statuses...)
}

// SetEmailPending: сколько проверок почты ответят «ещё не подтверждено».
func (s *Server) SetEmailPending(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emailPending = n
}

// SetSMSCode задаёт ожидаемый код активации.
func (s *Server) SetSMSCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.smsCode = code
}

// SetWantMore: сколько раз финализация попросит ещё один код.
func (s *Server) SetWantMore(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wantMore = n
}

// FailNext: следующие n запросов к path получат 503.
func (s *Server) FailNext(path string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = n
}

// SetConfirmations задаёт очередь подтверждений.
func (s *Server) SetConfirmations(items ...model.Confirmation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmations = append([]model.Confirmation(nil), items...)
}

// Confirmations возвращает текущую очередь подтверждений.
func (s *Server) Confirmations() []model.Confirmation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Confirmation(nil), s.confirmations...)
}

// Enrolled сообщает, завершена ли привязка.
func (s *Server) Enrolled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enrolled
}

// SetEnrolled помечает аккаунт как уже имеющий аутентификатор.
func (s *Server) SetEnrolled(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrolled = v
}

// Phone возвращает телефон, привязанный через SetAccountPhoneNumber.
func (s *Server) Phone() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phone
}

// SetAccessToken меняет действующий access-токен (например, после «истечения»).
func (s *Server) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acct.AccessToken = token
}

// Calls — число запросов к path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// LastForm — параметры последнего запроса к path (form + query).
func (s *Server) LastForm(path string) url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forms[path]
}

func (s *Server) countAndFail(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		s.mu.Lock()
		s.calls[r.URL.Path]++
		s.forms[r.URL.Path] = r.Form
		fail := s.failures[r.URL.Path] > 0
		if fail {
			s.failures[r.URL.Path]--
		}
		s.mu.Unlock()
		if fail {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withToken(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		ok := r.URL.Query().Get("access_token") == s.acct.AccessToken
		s.mu.Unlock()
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		h(w, r)
	}
}

func (s *Server) withCookie(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie("steamLoginSecure")
		s.mu.Lock()
		want := strconv.FormatUint(s.acct.SteamID, 10) + "%7C%7C" + s.acct.AccessToken
		s.mu.Unlock()
		if err != nil || ck.Value != want {
			writeJSON(w, map[string]any{"success": false, "needauth": true})
			return
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeResponse(w http.ResponseWriter, v any) {
	writeJSON(w, map[string]any{"response": v})
}

func (s *Server) queryTime(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	now := s.now
	s.mu.Unlock()
	writeResponse(w, map[string]any{
		"server_time":            strconv.FormatInt(now, 10),
		"skew_tolerance_seconds": "60",
		"large_time_jink":        "86400",
	})
}

func (s *Server) addAuthenticator(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := 1
	switch {
	case len(s.addStatuses) > 0:
		status = s.addStatuses[0]
		s.addStatuses = s.addStatuses[1:]
	case s.enrolled:
		status = 29
	case !s.acct.HasPhone:
		status = 2
	}
	if status != 1 {
		writeResponse(w, map[string]any{"status": status})
		return
	}
	writeResponse(w, map[string]any{
		"shared_secret":   s.acct.SharedSecret,
		"identity_secret": s.acct.IdentitySecret,
		"secret_1":        []byte("secret-one"),
		"serial_number":   "1234567890123456789",
		"revocation_code": s.acct.RevocationCode,
		"uri":             "otpauth://totp/Steam:" + s.acct.AccountName + "?secret=XXXX&issuer=Steam",
		"server_time":     strconv.FormatInt(s.now, 10),
		"account_name":    s.acct.AccountName,
		"token_gid":       "2b2f1c4e5d6a7b8c",
		"status":          1,
	})
}

func (s *Server) finalize(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.finalizeStatuses) > 0 {
		status := s.finalizeStatuses[0]
		s.finalizeStatuses = s.finalizeStatuses[1:]
		writeResponse(w, map[string]any{"status": status, "success": false})
		return
	}
	if r.PostForm.Get("activation_code") != s.smsCode {
		writeResponse(w, map[string]any{"status": 89, "success": false})
		return
	}
	ts, _ := strconv.ParseInt(r.PostForm.Get("authenticator_time"), 10, 64)
	want, err := crypto.GenerateCode(s.acct.SharedSecret, ts)
	if err != nil || want != r.PostForm.Get("authenticator_code") || abs(ts-s.now) > s.tolerance+30*30 {
		writeResponse(w, map[string]any{"status": 88, "success": false})
		return
	}
	if s.wantMore > 0 {
		s.wantMore--
		writeResponse(w, map[string]any{"status": 1, "success": true, "want_more": true,
			"server_time": strconv.FormatInt(s.now, 10)})
		return
	}
	s.enrolled = true
	writeResponse(w, map[string]any{"status": 1, "success": true, "want_more": false,
		"server_time": strconv.FormatInt(s.now, 10)})
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.PostForm.Get("revocation_code") != s.acct.RevocationCode {
		writeResponse(w, map[string]any{"success": false, "revocation_attempts_remaining": 4})
		return
	}
	s.enrolled = false
	writeResponse(w, map[string]any{"success": true, "revocation_attempts_remaining": 5})
}

func (s *Server) setPhone(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phone = r.PostForm.Get("phone_number")
	writeResponse(w, map[string]any{
		"confirmation_email_address": "a***@example.com",
		"phone_number_formatted":     s.phone,
	})
}

func (s *Server) emailWaiting(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	awaiting := s.emailPending > 0
	if awaiting {
		s.emailPending--
	}
	writeResponse(w, map[string]any{"awaiting_email_confirmation": awaiting, "seconds_to_wait": 0})
}

func (s *Server) sendSMS(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acct.HasPhone = true
	writeResponse(w, map[string]any{})
}

func (s *Server) userCountry(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeResponse(w, map[string]any{"country": s.acct.Country})
}

func (s *Server) accessToken(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.PostForm.Get("refresh_token") != s.acct.RefreshToken {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeResponse(w, map[string]any{"access_token": s.acct.AccessToken})
}

// verify проверяет подпись запроса к подтверждениям для тега tag.
func (s *Server) verify(q url.Values, tag string) bool {
	if q.Get("a") != strconv.FormatUint(s.acct.SteamID, 10) || !strings.HasPrefix(q.Get("p"), "android:") {
		return false
	}
	ts, err := strconv.ParseInt(q.Get("t"), 10, 64)
	if err != nil || abs(ts-s.now) > s.tolerance {
		return false
	}
	want, err := crypto.ConfirmationHash(s.acct.IdentitySecret, ts, tag)
	return err == nil && want == q.Get("k")
}

func (s *Server) confList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.verify(r.URL.Query(), r.URL.Query().Get("tag")) {
		writeJSON(w, map[string]any{"success": false, "message": "Invalid authenticator"})
		return
	}
	conf := s.confirmations
	if conf == nil {
		conf = []model.Confirmation{}
	}
	writeJSON(w, map[string]any{"success": true, "conf": conf})
}

func (s *Server) confOp(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := r.URL.Query()
	if !s.verify(q, q.Get("tag")) {
		writeJSON(w, map[string]any{"success": false, "needauth": true})
		return
	}
	writeJSON(w, map[string]any{"success": s.resolve(q.Get("cid"), q.Get("ck"))})
}

func (s *Server) confMultiOp(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := r.PostForm
	if !s.verify(f, f.Get("tag")) {
		writeJSON(w, map[string]any{"success": false, "needauth": true})
		return
	}
	ids, nonces := f["cid[]"], f["ck[]"]
	ok := len(ids) == len(nonces) && len(ids) > 0
	for i := range ids {
		if i < len(nonces) && !s.resolve(ids[i], nonces[i]) {
			ok = false
		}
	}
	writeJSON(w, map[string]any{"success": ok})
}

// resolve убирает подтверждение из очереди; false, если его нет или nonce не совпал.
func (s *Server) resolve(id, nonce string) bool {
	for i, c := range s.confirmations {
		if c.ID == id {
			if c.Nonce != nonce {
				return false
			}
			s.confirmations = append(s.confirmations[:i], s.confirmations[i+1:]...)
			return true
		}
	}
	return false
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
