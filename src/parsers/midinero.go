package parsers

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/cachin/backend/src/mailmsg"
	"github.com/username/cachin/backend/src/models"
)

// MidineroSender originates the mobile-wallet alert family.
const MidineroSender = "noreply@midinero.com.uy"

// MidineroDomain is also scanned in raw bodies as a forwarding fallback.
// Known source of misclassification risk on unrelated forwarded mail, which
// is why the wallet rule is evaluated last.
const MidineroDomain = "midinero.com.uy"

var (
	consumptionSubjectPattern = regexp.MustCompile(`(?i)Aviso consumo por`)
	reloadSubjectPattern      = regexp.MustCompile(`(?i)Aviso recarga por`)
	transferSubjectPattern    = regexp.MustCompile(`(?i)Tu transferencia ha sido acreditada`)

	// The alerts are small HTML tables; values sit in <b> cells.
	dateTimeCellPattern      = regexp.MustCompile(`(?s)Fecha y hora.*?<b>([^<]+)</b>`)
	merchantCellPattern      = regexp.MustCompile(`(?s)Comercio.*?<b>([^<]+)</b>`)
	accountCellPattern       = regexp.MustCompile(`(?s)N[^<]*cuenta.*?<b>([^<]+)</b>`)
	reloadAccountCellPattern = regexp.MustCompile(`(?s)Cuenta</div>.*?<b>([0-9]{6,})</b>`)
	currencyCellPattern      = regexp.MustCompile(`(?s)Moneda.*?<b>([^<]+)</b>`)
	totalCellPattern         = regexp.MustCompile(`(?s)Total Pesos.*?\$\s*([\d.,]+)`)
	sentCellPattern          = regexp.MustCompile(`(?s)Enviada.*?<b>([^<]+)</b>`)
	originAccountPattern     = regexp.MustCompile(`(?s)Cuenta origen.*?([0-9]{6,})`)
	destInstitutionPattern   = regexp.MustCompile(`(?s)Instituci(?:&oacute;|ó)n destino.*?<b>([^<]+)</b>`)

	localeStripPattern = regexp.MustCompile(`[$\s]`)
)

// Currency names as they appear in the alerts, normalized to 3-letter codes.
var currencyWordMappings = []struct {
	word string
	code string
}{
	{"URUGUAYAN PESOS", "UYU"},
	{"PESOS URUGUAYOS", "UYU"},
	{"PESOS", "UYU"},
	{"US DOLLARS", "USD"},
	{"DOLARES", "USD"},
	{"DÓLARES", "USD"},
	{"DOLLARS", "USD"},
	{"EUROS", "EUR"},
	{"REALES", "BRL"},
}

const defaultWalletCurrency = "UYU"

func normalizeCurrencyName(text string) string {
	if text == "" {
		return defaultWalletCurrency
	}
	t := strings.ToUpper(strings.TrimSpace(text))

	switch t {
	case "UYU", "USD", "EUR", "BRL":
		return t
	}
	for _, m := range currencyWordMappings {
		if strings.Contains(t, m.word) {
			return m.code
		}
	}
	return defaultWalletCurrency
}

// parseLocaleAmount parses the wallet's localized format: period as
// thousands separator, comma as decimal separator ("1.234,56" -> 1234.56).
func parseLocaleAmount(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Decimal{}, false
	}
	s = localeStripPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// parseWalletDateTime parses "DD/MM/YYYY HH:MM", ignoring any trailing text.
func parseWalletDateTime(s string) *time.Time {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return nil
	}
	t, err := time.Parse("02/01/2006 15:04", fields[0]+" "+fields[1])
	if err != nil {
		return nil
	}
	return &t
}

// MidineroParser handles the mobile-wallet alert family: a detector plus
// three sub-formats routed by subject keyword.
type MidineroParser struct{}

func NewMidineroParser() *MidineroParser { return &MidineroParser{} }

// isWalletMessage reports whether the message originates from (or was
// forwarded from) the wallet provider.
func (p *MidineroParser) isWalletMessage(env *mailmsg.Envelope) bool {
	for _, addr := range env.FromEmails() {
		if addr == MidineroSender {
			return true
		}
	}
	body := env.Text()
	if strings.TrimSpace(body) == "" && env.HTML() != "" {
		body = mailmsg.HTMLToText(env.HTML())
	}
	return strings.Contains(strings.ToLower(body), MidineroSender)
}

func (p *MidineroParser) Parse(env *mailmsg.Envelope) models.ParseResult {
	if !p.isWalletMessage(env) {
		return models.NoMatch()
	}

	subject := strings.TrimSpace(env.Subject())
	switch {
	case consumptionSubjectPattern.MatchString(subject):
		return p.parseConsumption(env)
	case reloadSubjectPattern.MatchString(subject):
		return p.parseReload(env)
	case transferSubjectPattern.MatchString(subject):
		return p.parseTransfer(env)
	}
	return models.NoMatch()
}

func firstGroup(pattern *regexp.Regexp, html string) string {
	if m := pattern.FindStringSubmatch(html); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func (p *MidineroParser) parseConsumption(env *mailmsg.Envelope) models.ParseResult {
	html := env.HTML()

	fechaHora := firstGroup(dateTimeCellPattern, html)
	comercio := firstGroup(merchantCellPattern, html)
	cuenta := firstGroup(accountCellPattern, html)
	moneda := firstGroup(currencyCellPattern, html)
	total := firstGroup(totalCellPattern, html)

	txDate := parseWalletDateTime(fechaHora)
	var amount decimal.NullDecimal
	if d, ok := parseLocaleAmount(total); ok {
		amount = decimal.NullDecimal{Decimal: d, Valid: true}
	}
	currency := normalizeCurrencyName(moneda)

	description := comercio
	if description == "" {
		description = env.Subject()
	}
	if description == "" {
		description = "Consumo Midinero"
	}

	cand := &models.Candidate{
		Description: description,
		Source:      walletSource(cuenta),
		Currency:    currency,
		Amount:      amount,
		ExternalID:  walletExternalID(env, "consumption", txDate, amount),
		Date:        txDate,
		Subject:     env.Subject(),
		FromEmails:  env.FromEmails(),
		MessageID:   env.MessageID(),
	}
	return validateWallet(cand)
}

func (p *MidineroParser) parseReload(env *mailmsg.Envelope) models.ParseResult {
	html := env.HTML()

	fechaHora := firstGroup(dateTimeCellPattern, html)
	cuenta := firstGroup(reloadAccountCellPattern, html)
	moneda := firstGroup(currencyCellPattern, html)
	total := firstGroup(totalCellPattern, html)

	txDate := parseWalletDateTime(fechaHora)
	var amount decimal.NullDecimal
	if d, ok := parseLocaleAmount(total); ok {
		// Reloads are inflows.
		amount = decimal.NullDecimal{Decimal: d.Neg(), Valid: true}
	}

	cand := &models.Candidate{
		Description: "Recarga Midinero",
		Source:      walletSource(cuenta),
		Currency:    normalizeCurrencyName(moneda),
		Amount:      amount,
		ExternalID:  walletExternalID(env, "reload", txDate, amount),
		Date:        txDate,
		Subject:     env.Subject(),
		FromEmails:  env.FromEmails(),
		MessageID:   env.MessageID(),
	}
	return validateWallet(cand)
}

func (p *MidineroParser) parseTransfer(env *mailmsg.Envelope) models.ParseResult {
	html := env.HTML()

	enviada := firstGroup(sentCellPattern, html)
	cuentaOrigen := firstGroup(originAccountPattern, html)
	institucion := firstGroup(destInstitutionPattern, html)
	moneda := firstGroup(currencyCellPattern, html)
	total := firstGroup(totalCellPattern, html)

	txDate := parseWalletDateTime(enviada)
	var amount decimal.NullDecimal
	if d, ok := parseLocaleAmount(total); ok {
		amount = decimal.NullDecimal{Decimal: d, Valid: true}
	}

	description := "Transferencia Midinero"
	if institucion != "" {
		description = "Transferencia a " + institucion
	}

	cand := &models.Candidate{
		Description: description,
		Source:      walletSource(cuentaOrigen),
		Currency:    normalizeCurrencyName(moneda),
		Amount:      amount,
		ExternalID:  walletExternalID(env, "transfer", txDate, amount),
		Date:        txDate,
		Subject:     env.Subject(),
		FromEmails:  env.FromEmails(),
		MessageID:   env.MessageID(),
	}
	return validateWallet(cand)
}

func walletSource(account string) string {
	if account == "" {
		return ""
	}
	return "midinero:" + account
}

func walletExternalID(env *mailmsg.Envelope, kind string, txDate *time.Time, amount decimal.NullDecimal) string {
	if id := env.MessageID(); id != "" {
		return id
	}
	dateStr := ""
	if txDate != nil {
		dateStr = txDate.Format("2006-01-02")
	}
	return fmt.Sprintf("midinero:%s:%s:%s", kind, dateStr, amountString(amount))
}

func validateWallet(cand *models.Candidate) models.ParseResult {
	if !cand.Amount.Valid || cand.Currency == "" {
		return models.Invalid("Missing amount or currency", cand)
	}
	return models.Parsed(cand)
}
