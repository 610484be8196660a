package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/zyplyctl/internal/client/api"
	"github.com/dmitrijs2005/zyplyctl/internal/client/callback"
	"github.com/dmitrijs2005/zyplyctl/internal/client/config"
	"github.com/dmitrijs2005/zyplyctl/internal/client/credentials"
	"github.com/dmitrijs2005/zyplyctl/internal/client/gateway"
	"github.com/dmitrijs2005/zyplyctl/internal/client/models"
	"github.com/dmitrijs2005/zyplyctl/internal/client/services"
	"github.com/dmitrijs2005/zyplyctl/internal/client/tokeninfo"
	"github.com/dmitrijs2005/zyplyctl/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ------------ helpers ------------

var ann = &models.User{ID: 1, Name: "Ann", Email: "ann@x.io"}

type backend struct {
	*httptest.Server
	tokens  map[string]*models.User
	profile models.Profile
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{
		tokens:  map[string]*models.User{"tok-ann": ann},
		profile: models.Profile{"bio": "hello", "age": float64(30)},
	}

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	authed := func(r *http.Request) *models.User {
		return b.tokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
	}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
			var req models.LoginRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Email == "broken@x.io" {
				writeJSON(w, http.StatusInternalServerError, map[string]string{})
				return
			}
			if req.Email != ann.Email || req.Password != "pw" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
				return
			}
			writeJSON(w, http.StatusOK, models.AuthPayload{Token: "tok-ann", User: ann})
		})
		r.Post("/auth/signup", func(w http.ResponseWriter, r *http.Request) {
			var req models.SignupRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			u := &models.User{ID: 9, Name: req.Name, Email: req.Email}
			b.tokens["tok-new"] = u
			writeJSON(w, http.StatusCreated, models.AuthPayload{Token: "tok-new", User: u})
		})
		r.Post("/auth/forgot-password", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, models.MessageResponse{Message: "If that email exists, a reset link has been sent"})
		})
		r.Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.Header.Get("Authorization"), "flaky") {
				http.Error(w, "upstream down", http.StatusBadGateway)
				return
			}
			u := authed(r)
			if u == nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid token"})
				return
			}
			writeJSON(w, http.StatusOK, u)
		})
		r.Get("/user/profile", func(w http.ResponseWriter, r *http.Request) {
			if authed(r) == nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(w, http.StatusOK, b.profile)
		})
		r.Put("/user/profile", func(w http.ResponseWriter, r *http.Request) {
			var p models.Profile
			_ = json.NewDecoder(r.Body).Decode(&p)
			for k, v := range p {
				b.profile[k] = v
			}
			writeJSON(w, http.StatusOK, b.profile)
		})
	})

	b.Server = httptest.NewServer(r)
	t.Cleanup(b.Close)
	return b
}

func readerFromLines(lines ...string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(strings.Join(lines, "\n") + "\n"))
}

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	orig := getPassword
	getPassword = func(w io.Writer) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { getPassword = orig })
}

type testApp struct {
	*App
	out   *bytes.Buffer
	store *credentials.MemoryStore
}

func newTestApp(t *testing.T, b *backend, input ...string) *testApp {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.APIBaseURL = b.URL + "/api"
	cfg.StoreKind = config.StoreMemory

	store := credentials.NewMemoryStore()
	client := api.NewClient(gateway.New(cfg.APIBaseURL, store, gateway.WithTimeout(5*time.Second)))
	a := newApp(cfg, client, store, logging.Nop())

	out := &bytes.Buffer{}
	a.out = out
	a.reader = readerFromLines(input...)
	a.session.Restore(context.Background())

	return &testApp{App: a, out: out, store: store}
}

// fakeWaiter stands in for the loopback listener and delivers token at once.
type fakeWaiter struct {
	ing   callback.Ingester
	token string
}

func (f *fakeWaiter) CallbackURL() string { return "http://127.0.0.1:3000/auth/callback" }
func (f *fakeWaiter) Wait(ctx context.Context) error {
	return f.ing.IngestExternalToken(ctx, f.token)
}

// ------------ tests ------------

func TestApp_Login(t *testing.T) {
	b := newBackend(t)
	stubPassword(t, "pw")
	a := newTestApp(t, b, "ann@x.io", "ann@x.io")
	ctx := context.Background()

	require.NoError(t, a.Login(ctx))
	assert.True(t, a.isLoggedIn())
	assert.Contains(t, a.out.String(), "Signed in as ann@x.io")
	assert.Equal(t, "(ann@x.io) ", a.getStatus())

	assert.ErrorIs(t, a.Login(ctx), errAlreadySignedIn)
}

func TestApp_LoginWrongPassword(t *testing.T) {
	b := newBackend(t)
	stubPassword(t, "wrong")
	a := newTestApp(t, b, "ann@x.io")

	err := a.Login(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())
	assert.False(t, a.isLoggedIn())
	assert.Equal(t, "(unauthenticated) ", a.getStatus())
}

func TestApp_LoginServerErrorLeavesSessionSignedOut(t *testing.T) {
	b := newBackend(t)
	stubPassword(t, "pw")
	a := newTestApp(t, b, "broken@x.io")
	ctx := context.Background()
	require.NoError(t, a.store.Save(ctx, "tok-old"))

	err := a.Login(ctx)

	require.Error(t, err)
	assert.Equal(t, gateway.KindHTTP, gateway.KindOf(err))
	assert.Equal(t, "Request failed with status 500", err.Error())
	assert.False(t, a.isLoggedIn())
	assert.Equal(t, services.StateUnauthenticated, a.session.Snapshot().State())
	tok, ok, _ := a.store.Read(ctx)
	assert.True(t, ok)
	assert.Equal(t, "tok-old", tok)
}

func TestApp_Signup(t *testing.T) {
	b := newBackend(t)
	stubPassword(t, "pw")
	a := newTestApp(t, b, "Bob", "bob@x.io")

	require.NoError(t, a.Signup(context.Background()))
	assert.Contains(t, a.out.String(), "Welcome, Bob!")
	tok, _, _ := a.store.Read(context.Background())
	assert.Equal(t, "tok-new", tok)
}

func TestApp_ForgotPassword(t *testing.T) {
	b := newBackend(t)
	a := newTestApp(t, b, "nobody@x.io")

	require.NoError(t, a.ForgotPassword(context.Background()))
	assert.Contains(t, a.out.String(), "reset link has been sent")
}

func TestApp_OAuth(t *testing.T) {
	b := newBackend(t)
	a := newTestApp(t, b)
	a.newListener = func(addr string, ing callback.Ingester) callbackWaiter {
		assert.Equal(t, "127.0.0.1:3000", addr)
		return &fakeWaiter{ing: ing, token: "tok-ann"}
	}

	require.NoError(t, a.OAuth(context.Background(), []string{"GitHub"}))
	assert.Contains(t, a.out.String(), b.URL+"/api/auth/github")
	assert.Contains(t, a.out.String(), "Signed in as ann@x.io")
	assert.True(t, a.isLoggedIn())
}

func TestApp_OAuthUsage(t *testing.T) {
	b := newBackend(t)
	a := newTestApp(t, b)

	assert.Error(t, a.OAuth(context.Background(), nil))
	assert.Error(t, a.OAuth(context.Background(), []string{"myspace"}))
}

func TestApp_Callback(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	t.Run("missing token", func(t *testing.T) {
		a := newTestApp(t, b)
		assert.ErrorIs(t, a.Callback(ctx, nil), services.ErrNoCallbackToken)
	})

	t.Run("success", func(t *testing.T) {
		a := newTestApp(t, b)
		require.NoError(t, a.Callback(ctx, []string{"tok-ann"}))
		assert.True(t, a.isLoggedIn())
	})

	t.Run("degraded", func(t *testing.T) {
		a := newTestApp(t, b)
		require.NoError(t, a.Callback(ctx, []string{"flaky"}))
		assert.Contains(t, a.out.String(), "profile could not be loaded")
		assert.False(t, a.isLoggedIn())
		tok, _, _ := a.store.Read(ctx)
		assert.Equal(t, "flaky", tok)
	})
}

func TestApp_WhoAmIAndRefresh(t *testing.T) {
	b := newBackend(t)
	a := newTestApp(t, b)
	ctx := context.Background()

	assert.Error(t, a.WhoAmI(ctx))

	require.NoError(t, a.Callback(ctx, []string{"tok-ann"}))
	a.out.Reset()
	require.NoError(t, a.Refresh(ctx))
	assert.Equal(t, "#1 Ann <ann@x.io>\n", a.out.String())

	delete(b.tokens, "tok-ann")
	err := a.Refresh(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signed out")
	assert.False(t, a.isLoggedIn())
}

func TestApp_Logout(t *testing.T) {
	b := newBackend(t)
	a := newTestApp(t, b)
	ctx := context.Background()

	require.NoError(t, a.Callback(ctx, []string{"tok-ann"}))
	require.NoError(t, a.Logout(ctx))
	assert.False(t, a.isLoggedIn())
	_, ok, _ := a.store.Read(ctx)
	assert.False(t, ok)
}

func TestApp_Status(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokeninfo.Claims{
		UserID:           1,
		Email:            ann.Email,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(2 * time.Hour))},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	b.tokens[signed] = ann

	a := newTestApp(t, b)
	require.NoError(t, a.Status(ctx))
	assert.Contains(t, a.out.String(), "State:   unauthenticated")
	assert.Contains(t, a.out.String(), "Token:   none")

	require.NoError(t, a.Callback(ctx, []string{signed}))
	a.out.Reset()
	require.NoError(t, a.Status(ctx))
	assert.Contains(t, a.out.String(), "State:   authenticated")
	assert.Contains(t, a.out.String(), "User:    #1 Ann <ann@x.io>")
	assert.Contains(t, a.out.String(), "expires in")

	a.Logout(ctx)
	require.NoError(t, a.Callback(ctx, []string{"tok-ann"}))
	a.out.Reset()
	require.NoError(t, a.Status(ctx))
	assert.Contains(t, a.out.String(), "opaque")
}

func TestApp_Profile(t *testing.T) {
	b := newBackend(t)
	a := newTestApp(t, b, "location=Riga", "")
	ctx := context.Background()

	err := a.Profile(ctx, nil)
	assert.Equal(t, gateway.KindAuthRequired, gateway.KindOf(err))

	require.NoError(t, a.Callback(ctx, []string{"tok-ann"}))
	a.out.Reset()
	require.NoError(t, a.Profile(ctx, nil))
	assert.Equal(t, "age  30\nbio  hello\n", a.out.String())

	a.out.Reset()
	require.NoError(t, a.Profile(ctx, []string{"edit"}))
	assert.Contains(t, a.out.String(), "location  Riga")
	assert.Equal(t, "Riga", b.profile["location"])

	assert.Error(t, a.Profile(ctx, []string{"delete"}))
}

func TestApp_ProfileRejectedTokenSignsOut(t *testing.T) {
	b := newBackend(t)
	a := newTestApp(t, b)
	ctx := context.Background()

	require.NoError(t, a.Callback(ctx, []string{"tok-ann"}))
	require.True(t, a.isLoggedIn())

	delete(b.tokens, "tok-ann")
	err := a.Profile(ctx, nil)

	var gerr *gateway.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, http.StatusUnauthorized, gerr.Status)
	assert.False(t, a.isLoggedIn())
	_, ok, _ := a.store.Read(ctx)
	assert.False(t, ok)
}

func TestNewApp_Stores(t *testing.T) {
	ctx := context.Background()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.StorePath = filepath.Join(t.TempDir(), "session.db")
	cfg.TokenPassphrase = "pw"
	cfg.LogFile = filepath.Join(t.TempDir(), "zyply.log")

	a, err := NewApp(ctx, cfg)
	require.NoError(t, err)
	_, isSQLite := a.tokens.(*credentials.SQLiteStore)
	assert.True(t, isSQLite)
	a.Close()

	cfg.StoreKind = config.StoreMemory
	a, err = NewApp(ctx, cfg)
	require.NoError(t, err)
	_, isMemory := a.tokens.(*credentials.MemoryStore)
	assert.True(t, isMemory)
	a.Close()

	cfg.StoreKind = "redis"
	_, err = NewApp(ctx, cfg)
	assert.Error(t, err)
}
