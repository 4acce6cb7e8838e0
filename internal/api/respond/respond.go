package respond

import (
	"io"
	"net/http"

	"github.com/wb-go/wbf/ginext"
)

// Error represents a standard structure for error responses.
type Error struct {
	Error string `json:"error"`
}

// JSON sends a JSON response with the specified HTTP status code and data.
func JSON(c *ginext.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// OK sends a 200 OK JSON response.
func OK(c *ginext.Context, result interface{}) {
	JSON(c, http.StatusOK, result)
}

// Accepted sends a 202 Accepted JSON response.
func Accepted(c *ginext.Context, result interface{}) {
	JSON(c, http.StatusAccepted, result)
}

// Fail sends an error JSON response with the specified HTTP status code.
func Fail(c *ginext.Context, status int, msg string) {
	JSON(c, status, Error{Error: msg})
}

// Attachment streams r as a downloadable file named filename.
func Attachment(c *ginext.Context, contentType, filename string, size int64, r io.Reader) {
	c.DataFromReader(http.StatusOK, size, contentType, r, map[string]string{
		"Content-Disposition": `attachment; filename="` + filename + `"`,
	})
}
