package admin

import (
	handlershared "github.com/dujiao-next/newsletter-tracker/internal/http/handlers/shared"
	"github.com/dujiao-next/newsletter-tracker/internal/http/response"
	"github.com/dujiao-next/newsletter-tracker/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var subscriberLifecycleErrorRules = []handlershared.MappedError{
	{Target: service.ErrSubscriberNotFound, Code: response.CodeNotFound, Key: "error.subscriber_not_found"},
	{Target: service.ErrDirectoryUnavailable, Code: response.CodeInternal, Key: "error.directory_unavailable"},
}

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondSubscriberError(c *gin.Context, err error, fallbackKey string) {
	handlershared.RespondWithMappedError(c, err, subscriberLifecycleErrorRules, response.CodeInternal, fallbackKey)
}

func parseSubscriberID(c *gin.Context) (uint, bool) {
	return handlershared.ParseIDParam(c, "id", "error.subscriber_id_invalid")
}
