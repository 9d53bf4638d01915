// Package audit registra los eventos de seguridad del sistema en una
// pista separada de los logs operativos, filtrable por el campo "audit".
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/authcore/internal/observability/logger"
)

// Eventos auditados.
const (
	EventLogin          = "login"
	EventRegister       = "register"
	EventRefreshReuse   = "refresh_reuse"
	EventPasswordReset  = "password_reset"
	EventSessionRevoked = "session_revoked"
	EventDeviceTrusted  = "device_trusted"
	EventUserDisabled   = "user_disabled"
)

// Log emite un evento de auditoría con los campos dados.
func Log(ctx context.Context, event string, fields ...zap.Field) {
	all := make([]zap.Field, 0, len(fields)+2)
	all = append(all, logger.Bool("audit", true), logger.String("event", event))
	all = append(all, fields...)
	logger.From(ctx).Info("audit", all...)
}
