package api

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func TestLoginPageStates(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name     string
		form     url.Values
		wantCode int
		want     string
	}{
		{"not attempted", url.Values{}, http.StatusOK, "Please enter your username and password"},
		{"wrong password", url.Values{"username": {"admin"}, "password": {"nope"}}, http.StatusUnauthorized, "Username/password is incorrect"},
		{"unknown user", url.Values{"username": {"mallory"}, "password": {"admin123"}}, http.StatusUnauthorized, "Username/password is incorrect"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body, _ := env.postForm(t, "/login", tt.form)
			if code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, code)
			}
			if !strings.Contains(body, tt.want) {
				t.Fatalf("expected %q in page", tt.want)
			}
			if strings.Contains(body, "Welcome") {
				t.Fatal("sidebar must stay hidden before login")
			}
		})
	}
}

func TestLoginShowsSidebar(t *testing.T) {
	env := newTestEnv(t, nil)

	code, body, _ := env.get(t, "/")
	if code != http.StatusOK || !strings.Contains(body, "Please enter your username and password") {
		t.Fatalf("expected login page, got %d", code)
	}

	env.login(t)

	code, _, header := env.get(t, "/")
	if code != http.StatusSeeOther || header.Get("Location") != "/chat" {
		t.Fatalf("expected signed-in root to redirect to /chat, got %d", code)
	}

	code, body, _ = env.get(t, "/chat")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	for _, want := range []string{"Welcome Administrator", "Logout", "Wikipedia Chatbot", "Security Tools"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in page", want)
		}
	}
}

func TestLogoutEndsSession(t *testing.T) {
	env := newTestEnv(t, nil)
	env.login(t)

	code, _, header := env.postForm(t, "/logout", nil)
	if code != http.StatusSeeOther || header.Get("Location") != "/" {
		t.Fatalf("expected redirect to /, got %d %q", code, header.Get("Location"))
	}

	code, _, header = env.get(t, "/chat")
	if code != http.StatusSeeOther || header.Get("Location") != "/" {
		t.Fatalf("expected signed-out /chat to redirect, got %d", code)
	}
}

func TestAPILogin(t *testing.T) {
	env := newTestEnv(t, nil)

	code, body, _ := env.postJSON(t, "/api/login", `{"username":"","password":""}`)
	if code != http.StatusBadRequest || !strings.Contains(body, `"status":"not_attempted"`) {
		t.Fatalf("expected not_attempted 400, got %d %s", code, body)
	}

	code, body, _ = env.postJSON(t, "/api/login", `{"username":"bhavya","password":"admin123"}`)
	if code != http.StatusUnauthorized || !strings.Contains(body, MsgRejected) {
		t.Fatalf("expected rejected 401, got %d %s", code, body)
	}

	code, _, _ = env.get(t, "/api/me")
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 before login, got %d", code)
	}

	code, body, _ = env.postJSON(t, "/api/login", `{"username":"bhavya","password":"user123"}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", code, body)
	}
	var login map[string]any
	decodeBody(t, body, &login)
	if login["status"] != "authenticated" || login["name"] != "Bhavya" {
		t.Fatalf("unexpected login response %v", login)
	}

	code, body, _ = env.get(t, "/api/me")
	if code != http.StatusOK || !strings.Contains(body, `"username":"bhavya"`) {
		t.Fatalf("expected session info, got %d %s", code, body)
	}

	code, _, _ = env.postJSON(t, "/api/logout", `{}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200 on logout, got %d", code)
	}
	code, _, _ = env.get(t, "/api/me")
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", code)
	}
}

func TestAPILoginInvalidBody(t *testing.T) {
	env := newTestEnv(t, nil)
	code, _, _ := env.postJSON(t, "/api/login", `{"username":`)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}
