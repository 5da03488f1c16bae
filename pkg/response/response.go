package response

import (
	"log"
	"net/http"

	"clickbag.eco/backend/internal/model"
	"clickbag.eco/backend/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetIdentity retrieves the authenticated caller identity from the context
func GetIdentity(c *gin.Context) (model.CallerIdentity, error) {
	value, exists := c.Get("identity")
	if !exists {
		return model.CallerIdentity{}, apperror.ErrUnauthorized
	}

	identity, ok := value.(model.CallerIdentity)
	if !ok || identity.UID == uuid.Nil {
		return model.CallerIdentity{}, apperror.ErrUnauthorized
	}

	return identity, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	// Log internal errors
	if code == http.StatusInternalServerError {
		log.Printf("[Internal Error]: %v", err)
	}

	c.JSON(code, gin.H{"error": err.Error()})
}
