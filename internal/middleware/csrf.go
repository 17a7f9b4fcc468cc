package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/salesboard/internal/pkg"
)

const (
	csrfCookieName = "_csrf_token"
	csrfFormField  = "_csrf_token"
	csrfHeaderName = "X-CSRF-Token"
	csrfContextKey = "CSRFToken"
)

const csrfExpiredToast = "Your session expired, reload the page and try again"

// CSRF protects the HTML form routes with a signed double-submit cookie.
//
// Token format: hex(nonce) + "." + base64url(HMAC-SHA256(nonce, secret))
//
// Safe methods get a token (reusing a validly signed cookie when present),
// exposed to templates via GetCSRFToken. Unsafe methods must echo the cookie in
// the "_csrf_token" form field or the X-CSRF-Token header; htmx sends the header
// from the hx-headers attribute on <body>.
//
// The JSON API is mounted without this middleware.
func CSRF(secret string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, pkg.Response{
				Code:    http.StatusInternalServerError,
				Message: "csrf secret is required",
			})
		}
	}

	secure := gin.Mode() == gin.ReleaseMode
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			token, err := c.Cookie(csrfCookieName)
			if err != nil || !validToken(token, secret) {
				token, err = generateToken(secret)
				if err != nil {
					c.AbortWithStatusJSON(http.StatusInternalServerError, pkg.Response{
						Code:    http.StatusInternalServerError,
						Message: "failed to generate CSRF token",
					})
					return
				}
				setCSRFCookie(c, token, secure)
			}
			c.Set(csrfContextKey, token)
			c.Next()

		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			cookieToken, err := c.Cookie(csrfCookieName)
			if err != nil || cookieToken == "" {
				rejectCSRF(c, "CSRF token missing")
				return
			}

			requestToken := c.GetHeader(csrfHeaderName)
			if requestToken == "" {
				requestToken = c.PostForm(csrfFormField)
			}
			if requestToken == "" {
				rejectCSRF(c, "CSRF token missing")
				return
			}

			if !validToken(cookieToken, secret) || !tokensMatch(cookieToken, requestToken) {
				rejectCSRF(c, "CSRF token invalid")
				return
			}

			c.Set(csrfContextKey, cookieToken)
			c.Next()

		default:
			c.Next()
		}
	}
}

// rejectCSRF aborts with 403. htmx callers get a toast instead of a swap so
// the half-filled form stays on screen.
func rejectCSRF(c *gin.Context, reason string) {
	if pkg.IsHTMX(c) {
		pkg.ShowToast(c, csrfExpiredToast, pkg.ToastError)
		c.Header("HX-Reswap", "none")
		c.AbortWithStatus(http.StatusForbidden)
		return
	}
	c.AbortWithStatusJSON(http.StatusForbidden, pkg.Response{
		Code:    http.StatusForbidden,
		Message: reason,
	})
}

// GetCSRFToken retrieves the CSRF token stored in gin.Context by the CSRF middleware.
// Returns an empty string if no token is available.
func GetCSRFToken(c *gin.Context) string {
	if token, exists := c.Get(csrfContextKey); exists {
		if s, ok := token.(string); ok {
			return s
		}
	}
	return ""
}

// SetCSRFTokenWithSecret exposes a validly signed cookie token to templates on
// requests that bypassed CSRF, such as NoRoute error pages.
func SetCSRFTokenWithSecret(c *gin.Context, secret string) {
	if _, exists := c.Get(csrfContextKey); exists {
		return
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return
	}
	token, err := c.Cookie(csrfCookieName)
	if err != nil || token == "" {
		return
	}
	if !validToken(token, secret) {
		return
	}
	c.Set(csrfContextKey, token)
}

// generateToken creates a new CSRF token: hex(nonce) + "." + base64url(HMAC-SHA256(nonce, secret)).
func generateToken(secret string) (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	nonceHex := hex.EncodeToString(nonce)
	sig := signNonce(nonceHex, secret)
	return nonceHex + "." + sig, nil
}

// signNonce returns the base64url-encoded HMAC-SHA256 signature of the nonce.
func signNonce(nonce, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// validToken checks whether the token has a valid format and a correct HMAC signature.
func validToken(token, secret string) bool {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return false
	}
	expectedSig := signNonce(parts[0], secret)
	return subtle.ConstantTimeCompare([]byte(parts[1]), []byte(expectedSig)) == 1
}

// tokensMatch performs a constant-time comparison of two token strings.
func tokensMatch(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// setCSRFCookie sets the CSRF token cookie with HttpOnly=false and SameSite=Strict.
// When secure is true (release mode), the Secure flag is set so the cookie is
// only transmitted over HTTPS.
func setCSRFCookie(c *gin.Context, token string, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}
