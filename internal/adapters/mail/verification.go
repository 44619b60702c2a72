package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"

	"github.com/google/uuid"
)

// DefaultLocale is used for unknown locales.
const DefaultLocale = "en"

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	verificationHTML = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/verification.html.tmpl")) //nolint:gochecknoglobals // parsed once
	verificationText = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/verification.txt.tmpl"))  //nolint:gochecknoglobals // parsed once
)

type verificationStrings struct {
	Subject      string
	Heading      string
	Intro        string
	Instructions string
	Button       string
	Expires      string
	Footer       string
}

var verificationTranslations = map[string]verificationStrings{ //nolint:gochecknoglobals // read-only table
	"en": {
		Subject:      "Verify your email for the Baby Predictions pool",
		Heading:      "Verify Your Email",
		Intro:        "Thanks for making a prediction!",
		Instructions: "Click the button below to verify your email address and save your prediction:",
		Button:       "Verify Email",
		Expires:      "This link will expire in 24 hours.",
		Footer:       "If you didn't make this request, you can safely ignore this email.",
	},
	"es-AR": {
		Subject:      "Verifica tu email para las Predicciones del Bebé",
		Heading:      "Verifica Tu Email",
		Intro:        "¡Gracias por hacer una predicción!",
		Instructions: "Haz clic en el botón de abajo para verificar tu dirección de email y guardar tu predicción:",
		Button:       "Verificar Email",
		Expires:      "Este enlace expirará en 24 horas.",
		Footer:       "Si no realizaste esta solicitud, puedes ignorar este email de forma segura.",
	},
	"sv": {
		Subject:      "Verifiera din e-post för bebis-förutsägelserna",
		Heading:      "Verifiera Din E-post",
		Intro:        "Tack för att du gjort en förutsägelse!",
		Instructions: "Klicka på knappen nedan för att verifiera din e-postadress och spara din förutsägelse:",
		Button:       "Verifiera E-post",
		Expires:      "Denna länk kommer att upphöra om 24 timmar.",
		Footer:       "Om du inte gjorde denna begäran kan du ignorera detta e-postmeddelande.",
	},
}

// SupportedLocale returns locale when a translation exists, else DefaultLocale.
func SupportedLocale(locale string) string {
	if _, ok := verificationTranslations[locale]; ok {
		return locale
	}
	return DefaultLocale
}

// VerificationURL builds the link a participant follows to verify email.
func VerificationURL(baseURL, locale, email, token string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("email", email)
	return fmt.Sprintf("%s/%s/verify-email?%s", strings.TrimRight(baseURL, "/"), SupportedLocale(locale), q.Encode())
}

// VerificationMessage renders the localized verification email.
func VerificationMessage(email, token, locale, baseURL string) (Message, error) {
	locale = SupportedLocale(locale)
	data := struct {
		Locale string
		URL    string
		T      verificationStrings
	}{
		Locale: locale,
		URL:    VerificationURL(baseURL, locale, email, token),
		T:      verificationTranslations[locale],
	}

	var html, text bytes.Buffer
	if err := verificationHTML.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render verification html: %w", err)
	}
	if err := verificationText.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render verification text: %w", err)
	}

	return Message{
		ID:      uuid.NewString(),
		Kind:    KindVerification,
		To:      email,
		Subject: data.T.Subject,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
