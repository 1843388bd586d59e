package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestViewportWidth(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"none", nil, 0},
		{"client hint", map[string]string{"Sec-CH-Viewport-Width": "1280"}, 1280},
		{"legacy hint", map[string]string{"Viewport-Width": " 375 "}, 375},
		{"prefers sec hint", map[string]string{"Sec-CH-Viewport-Width": "1024", "Viewport-Width": "375"}, 1024},
		{"garbage", map[string]string{"Sec-CH-Viewport-Width": "wide"}, 0},
		{"negative", map[string]string{"Viewport-Width": "-5"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ViewportWidth(r))
		})
	}
}

func TestSession(t *testing.T) {
	h := NewPageHandlers("http://origin", nil, nil, nil, nil)

	t.Run("reuses valid cookie", func(t *testing.T) {
		id := uuid.NewString()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookie, Value: id})
		w := httptest.NewRecorder()

		assert.Equal(t, id, h.session(w, r))
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("issues cookie when missing or malformed", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "not-a-uuid"})
		w := httptest.NewRecorder()

		id := h.session(w, r)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
		cookies := w.Result().Cookies()
		if assert.Len(t, cookies, 1) {
			assert.Equal(t, id, cookies[0].Value)
			assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
		}
	})
}

func TestPublicURL(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://edge.example.com/blog/post?rum=on", nil)
	assert.Equal(t, "http://edge.example.com/blog/post?rum=on", publicURL(r))

	r.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://edge.example.com/blog/post?rum=on", publicURL(r))
}

func TestIsHTML(t *testing.T) {
	assert.True(t, isHTML("text/html; charset=utf-8"))
	assert.True(t, isHTML("TEXT/HTML"))
	assert.False(t, isHTML("application/json"))
	assert.False(t, isHTML(""))
}
