// Package flash carries one-shot notices across a redirect in a short-lived cookie.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	cookieName = "accounthub_flash"
	secureKey  = "flash.secure"
	maxNotices = 5
)

type Category string

const (
	Success Category = "success"
	Info    Category = "info"
	Warning Category = "warning"
	Danger  Category = "danger"
)

type Notice struct {
	Category Category `json:"c"`
	Message  string   `json:"m"`
}

// Secure marks flash cookies set later in the request as Secure.
func Secure(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(secureKey, secure)
		c.Next()
	}
}

func secure(c *gin.Context) bool {
	return c.GetBool(secureKey)
}

// Add queues a notice for the next rendered page.
func Add(c *gin.Context, category Category, message string) {
	notices := append(read(c), Notice{Category: category, Message: message})
	if len(notices) > maxNotices {
		notices = notices[len(notices)-maxNotices:]
	}

	raw, err := json.Marshal(notices)
	if err != nil {
		return
	}

	value := base64.RawURLEncoding.EncodeToString(raw)
	// later reads in the same request must see it too
	c.Set(cookieName, value)

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookieName, value, 60, "/", "", secure(c), true)
}

// Pop returns queued notices and clears them.
func Pop(c *gin.Context) []Notice {
	notices := read(c)
	if len(notices) > 0 {
		c.Set(cookieName, "")
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookieName, "", -1, "/", "", secure(c), true)
	}
	return notices
}

func read(c *gin.Context) []Notice {
	var value string
	if v, ok := c.Get(cookieName); ok {
		value, _ = v.(string)
	} else if v, err := c.Cookie(cookieName); err == nil {
		value = v
	}

	if value == "" {
		return nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil
	}

	var notices []Notice
	if err := json.Unmarshal(raw, &notices); err != nil {
		return nil
	}
	return notices
}
