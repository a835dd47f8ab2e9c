package public

import (
	"github.com/dujiao-next/newsletter-tracker/internal/http/handlers/shared"
	"github.com/dujiao-next/newsletter-tracker/internal/http/response"
	"github.com/dujiao-next/newsletter-tracker/internal/service"

	"github.com/gin-gonic/gin"
)

var captchaErrorRules = []shared.MappedError{
	{Target: service.ErrCaptchaRequired, Code: response.CodeBadRequest, Key: "error.captcha_required"},
	{Target: service.ErrCaptchaInvalid, Code: response.CodeBadRequest, Key: "error.captcha_invalid"},
	{Target: service.ErrCaptchaConfigInvalid, Code: response.CodeInternal, Key: "error.captcha_config_invalid"},
	{Target: service.ErrCaptchaVerifyFailed, Code: response.CodeInternal, Key: "error.captcha_verify_failed"},
}

var trackingErrorRules = []shared.MappedError{
	{Target: service.ErrSubscriberNotFound, Code: response.CodeNotFound, Key: "error.subscriber_not_found"},
}

var directorySyncErrorRules = []shared.MappedError{
	{Target: service.ErrDirectoryCustomerNotFound, Code: response.CodeNotFound, Key: "error.directory_customer_missing"},
	{Target: service.ErrDirectoryUnavailable, Code: response.CodeInternal, Key: "error.directory_unavailable"},
}

func respondError(c *gin.Context, code int, key string, err error) {
	shared.RespondError(c, code, key, err)
}

func respondSignupError(c *gin.Context, err error) {
	shared.RespondWithMappedError(c, err, captchaErrorRules, response.CodeInternal, "error.signup_failed")
}

func respondTrackEventError(c *gin.Context, err error) {
	shared.RespondWithMappedError(c, err, trackingErrorRules, response.CodeInternal, "error.tracking_failed")
}

func respondTrackPageViewError(c *gin.Context, err error) {
	shared.RespondWithMappedError(c, err, trackingErrorRules, response.CodeInternal, "error.page_view_failed")
}

func respondDirectorySyncError(c *gin.Context, err error) {
	shared.RespondWithMappedError(c, err, directorySyncErrorRules, response.CodeInternal, "error.directory_unavailable")
}
