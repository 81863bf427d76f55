package middleware

import (
	"bytes"
	"encoding/json"
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
)

// SanitizeAndCleanInputMiddleware strips markup from string fields of JSON
// and urlencoded bodies. Password fields are passed through untouched.
// Values come out as plain text; escaping is left to the templates.
func SanitizeAndCleanInputMiddleware() gin.HandlerFunc {
	policy := bluemonday.StrictPolicy()

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		switch c.ContentType() {
		case gin.MIMEJSON:
			if !sanitizeJSON(c, policy) {
				return
			}
		case gin.MIMEPOSTForm:
			if err := c.Request.ParseForm(); err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Malformed form"})
				return
			}
			sanitizeValues(c.Request.PostForm, policy)
			sanitizeValues(c.Request.Form, policy)
		}

		c.Next()
	}
}

func sanitizeJSON(c *gin.Context, policy *bluemonday.Policy) bool {
	var body map[string]interface{}
	buf, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid body"})
		return false
	}
	if err := json.Unmarshal(buf, &body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Malformed JSON"})
		return false
	}

	for k, v := range body {
		if str, ok := v.(string); ok && !isSecretField(k) {
			body[k] = stripMarkup(policy, str)
		}
	}

	newBody, _ := json.Marshal(body)
	c.Request.Body = io.NopCloser(bytes.NewBuffer(newBody))
	c.Request.ContentLength = int64(len(newBody))
	return true
}

func sanitizeValues(values map[string][]string, policy *bluemonday.Policy) {
	for k, vs := range values {
		if isSecretField(k) {
			continue
		}
		for i, v := range vs {
			vs[i] = stripMarkup(policy, v)
		}
	}
}

// stripMarkup drops tags but keeps characters such as ' and & that the
// policy would otherwise leave entity-encoded.
func stripMarkup(policy *bluemonday.Policy, s string) string {
	return html.UnescapeString(policy.Sanitize(s))
}

func isSecretField(name string) bool {
	return strings.Contains(strings.ToLower(name), "password")
}
