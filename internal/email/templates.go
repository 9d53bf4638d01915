package email

import (
	"bytes"
	"fmt"
	htemplate "html/template"
	texttpl "text/template"
	"time"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

// otpVars son las variables para los templates de código OTP.
type otpVars struct {
	AppName string
	Lead    string
	Code    string
	TTL     string
}

const otpHTMLBody = `<html><body style="font-family:sans-serif">
<p>{{.Lead}}</p>
<p style="font-size:28px;letter-spacing:6px;font-weight:bold">{{.Code}}</p>
<p>El código vence en {{.TTL}}. Si no lo pediste, ignorá este mensaje.</p>
<p>— {{.AppName}}</p>
</body></html>`

const otpTextBody = `{{.Lead}}

Código: {{.Code}}

El código vence en {{.TTL}}. Si no lo pediste, ignorá este mensaje.

— {{.AppName}}`

var (
	otpHTMLTmpl = htemplate.Must(htemplate.New("otp_html").Parse(otpHTMLBody))
	otpTextTmpl = texttpl.Must(texttpl.New("otp_text").Parse(otpTextBody))
)

var otpLeads = map[repository.OtpPurpose]struct {
	subject string
	lead    string
}{
	repository.OtpLoginEmail:    {"Tu código de acceso", "Usá este código para iniciar sesión:"},
	repository.OtpLoginPhone:    {"Tu código de acceso", "Usá este código para iniciar sesión:"},
	repository.OtpVerifyEmail:   {"Verificá tu email", "Usá este código para verificar tu dirección de email:"},
	repository.OtpVerifyPhone:   {"Verificá tu teléfono", "Usá este código para verificar tu teléfono:"},
	repository.OtpPasswordReset: {"Restablecé tu contraseña", "Usá este código para restablecer tu contraseña:"},
}

// RenderOtp renderiza subject, HTML y texto plano para un código OTP.
func RenderOtp(purpose repository.OtpPurpose, appName, code string, ttl time.Duration) (subject, html, text string, err error) {
	meta, ok := otpLeads[purpose]
	if !ok {
		return "", "", "", fmt.Errorf("email: no template for purpose %q", purpose)
	}

	vars := otpVars{
		AppName: appName,
		Lead:    meta.lead,
		Code:    code,
		TTL:     formatTTL(ttl),
	}

	var hb, tb bytes.Buffer
	if err := otpHTMLTmpl.Execute(&hb, vars); err != nil {
		return "", "", "", fmt.Errorf("email: render html: %w", err)
	}
	if err := otpTextTmpl.Execute(&tb, vars); err != nil {
		return "", "", "", fmt.Errorf("email: render text: %w", err)
	}
	return meta.subject, hb.String(), tb.String(), nil
}

func formatTTL(d time.Duration) string {
	if d >= time.Hour {
		return fmt.Sprintf("%d h", int(d.Hours()))
	}
	return fmt.Sprintf("%d min", int(d.Minutes()))
}
