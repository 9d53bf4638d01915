// Package email envía los correos transaccionales del servicio: códigos OTP
// de login, verificación de email y reset de password.
package email

import (
	"github.com/dropDatabas3/authcore/internal/observability/logger"
)

// Sender es la interfaz para enviar emails.
// Implementada por SMTPSender y LogSender.
type Sender interface {
	// Send envía un email con contenido HTML y texto plano.
	// El destinatario recibe ambas versiones como multipart/alternative.
	Send(to string, subject string, htmlBody string, textBody string) error
}

// LogSender implementa Sender escribiendo al log en lugar de enviar.
// Para desarrollo local sin servidor SMTP.
type LogSender struct{}

func (LogSender) Send(to, subject, htmlBody, textBody string) error {
	logger.L().Info("email (log sender)",
		logger.Component("email"),
		logger.String("to", to),
		logger.String("subject", subject),
	)
	logger.L().Debug("email body", logger.String("text", textBody))
	return nil
}
