package controllers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"homechef/pkg/apperr"
	"homechef/pkg/logging"
	"homechef/pkg/resp"
)

// fail writes err to the client. Unclassified errors are logged here since the
// client only ever sees a generic message for them.
func fail(c *gin.Context, log *zap.Logger, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		logging.For(c.Request.Context(), log).Error("request failed",
			zap.String("route", c.FullPath()), zap.Error(err))
	}
	resp.Error(c, err)
}
