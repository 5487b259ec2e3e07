package http

import (
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/faeln1/go-onebot-guard/internal/app/controllers"
	"github.com/faeln1/go-onebot-guard/internal/app/repositories"
	"github.com/faeln1/go-onebot-guard/internal/app/services"
	"github.com/faeln1/go-onebot-guard/internal/platform/middleware"
)

func newTestRouter() stdhttp.Handler {
	blacklistRepo := repositories.NewInMemoryBlacklistRepo()
	welcomeRepo := repositories.NewInMemoryWelcomeRepo()
	return NewRouter(RouterConfig{
		OneBotCtrl: controllers.NewOneBotController(controllers.OneBotControllerConfig{
			Pipeline: services.NewModerationPipeline(blacklistRepo, welcomeRepo, nil, nil, nil, nil, nil),
		}),
		BlacklistCtrl: controllers.NewBlacklistController(services.NewBlacklistService(blacklistRepo, nil)),
		WelcomeCtrl:   controllers.NewWelcomeController(services.NewWelcomeService(welcomeRepo)),
		MasterToken:   "master",
		EventSecret:   "hook",
	})
}

func do(h stdhttp.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterPublicEndpoints(t *testing.T) {
	h := newTestRouter()
	if rec := do(h, "GET", "/health", "", nil); rec.Code != stdhttp.StatusOK {
		t.Fatalf("/health = %d", rec.Code)
	}
	if rec := do(h, "GET", "/metrics", "", nil); rec.Code != stdhttp.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatalf("/metrics = %d", rec.Code)
	}
	if rec := do(h, "GET", "/", "", nil); !strings.Contains(rec.Body.String(), "OneBot Guard") {
		t.Fatalf("/ = %s", rec.Body.String())
	}
	if rec := do(h, "GET", "/nope", "", nil); rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("/nope = %d", rec.Code)
	}
}

func TestRouterAdminRequiresMasterToken(t *testing.T) {
	h := newTestRouter()
	if rec := do(h, "GET", "/api/blacklist", "", nil); rec.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("no token = %d", rec.Code)
	}
	if rec := do(h, "GET", "/api/blacklist", "", map[string]string{"apikey": "wrong"}); rec.Code != stdhttp.StatusForbidden {
		t.Fatalf("wrong token = %d", rec.Code)
	}

	auth := map[string]string{"Authorization": "Bearer master"}
	if rec := do(h, "POST", "/api/blacklist", `{"user_id":"7","reason":"spam"}`, auth); rec.Code != stdhttp.StatusCreated {
		t.Fatalf("create = %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(h, "GET", "/api/blacklist/7", "", auth); rec.Code != stdhttp.StatusOK {
		t.Fatalf("get = %d", rec.Code)
	}
	if rec := do(h, "PUT", "/api/welcome/100", `{"message":"hi {user}"}`, auth); rec.Code != stdhttp.StatusOK {
		t.Fatalf("welcome put = %d", rec.Code)
	}
	if rec := do(h, "DELETE", "/api/blacklist/7", "", auth); rec.Code != stdhttp.StatusNoContent {
		t.Fatalf("delete = %d", rec.Code)
	}
}

func TestRouterEventSignature(t *testing.T) {
	h := newTestRouter()
	body := `{"post_type":"meta_event","self_id":1}`
	if rec := do(h, "POST", "/onebot/event", body, nil); rec.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("unsigned = %d", rec.Code)
	}
	sig := map[string]string{middleware.SignatureHeader: middleware.Sign("hook", []byte(body))}
	if rec := do(h, "POST", "/onebot/event", body, sig); rec.Code != stdhttp.StatusNoContent {
		t.Fatalf("signed = %d", rec.Code)
	}
}
