package clientip_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/clientip"
)

func newRequest(remoteAddr string, headers map[string]string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = remoteAddr
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return r
}

func TestFromRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr fallback",
			remoteAddr: "203.0.113.7:51234",
			want:       "203.0.113.7",
		},
		{
			name:       "cdn header wins over forwarded chain",
			remoteAddr: "10.0.0.1:443",
			headers: map[string]string{
				"CF-Connecting-IP": "198.51.100.4",
				"X-Forwarded-For":  "192.0.2.1, 10.0.0.1",
			},
			want: "198.51.100.4",
		},
		{
			name:       "leftmost valid forwarded entry",
			remoteAddr: "10.0.0.1:443",
			headers:    map[string]string{"X-Forwarded-For": "garbage, 192.0.2.1, 10.0.0.1"},
			want:       "192.0.2.1",
		},
		{
			name:       "x-real-ip from reverse proxy",
			remoteAddr: "127.0.0.1:8080",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "203.0.113.9",
		},
		{
			name:       "ipv6 normalized and zone stripped",
			remoteAddr: "[fe80::1%eth0]:443",
			want:       "fe80::1",
		},
		{
			name:       "spoofed header that is not an ip is ignored",
			remoteAddr: "203.0.113.7:51234",
			headers:    map[string]string{"X-Real-IP": "evil.example.com"},
			want:       "203.0.113.7",
		},
		{
			name:       "unparseable everything yields empty",
			remoteAddr: "not-an-address",
			want:       "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, clientip.FromRequest(newRequest(tt.remoteAddr, tt.headers)))
		})
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	var got string
	var ok bool
	h := clientip.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = clientip.Extractor(r.Context())
	}))

	r := newRequest("203.0.113.7:51234", nil)
	h.ServeHTTP(httptest.NewRecorder(), r)

	require.True(t, ok)
	assert.Equal(t, "203.0.113.7", got)
}
