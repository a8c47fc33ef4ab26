package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/cachin/backend/src/models"
)

func TestMidineroParserConsumption(t *testing.T) {
	html := `<html><body><table>
<tr><td><div>Fecha y hora</div></td><td><b>15/03/2024 18:45</b></td></tr>
<tr><td><div>Comercio</div></td><td><b>FARMACIA CENTRAL</b></td></tr>
<tr><td><div>Nro. de cuenta</div></td><td><b>1234567</b></td></tr>
<tr><td><div>Moneda</div></td><td><b>Pesos Uruguayos</b></td></tr>
<tr><td><div>Total Pesos</div></td><td>$ 450,00</td></tr>
</table></body></html>`
	raw := htmlEmail("Midinero <"+MidineroSender+">", "Aviso consumo por $ 450,00", "<mid-1@midinero.com.uy>", html)

	result := NewMidineroParser().Parse(parseRaw(t, raw))
	require.Equal(t, models.StatusParsed, result.Status)

	cand := result.Candidate
	assert.Equal(t, "FARMACIA CENTRAL", cand.Description)
	assert.Equal(t, "midinero:1234567", cand.Source)
	assert.Equal(t, "UYU", cand.Currency)
	assert.Equal(t, "450.00", cand.Amount.Decimal.String())
	require.NotNil(t, cand.Date)
	assert.Equal(t, "2024-03-15 18:45", cand.Date.Format("2006-01-02 15:04"))
}

func TestMidineroParserReload(t *testing.T) {
	html := `<html><body><table>
<tr><td><div>Fecha y hora</div></td><td><b>20/04/2024 10:15</b></td></tr>
<tr><td><div>Cuenta</div></td><td><b>7654321</b></td></tr>
<tr><td><div>Moneda</div></td><td><b>Pesos Uruguayos</b></td></tr>
<tr><td><div>Total Pesos</div></td><td>$ 1.234,56</td></tr>
</table></body></html>`
	raw := htmlEmail(MidineroSender, "Aviso recarga por $ 1.234,56", "<mid-2@midinero.com.uy>", html)

	result := NewMidineroParser().Parse(parseRaw(t, raw))
	require.Equal(t, models.StatusParsed, result.Status)

	cand := result.Candidate
	assert.Equal(t, "Recarga Midinero", cand.Description)
	assert.Equal(t, "midinero:7654321", cand.Source)
	assert.Equal(t, "UYU", cand.Currency)
	assert.Equal(t, "-1234.56", cand.Amount.Decimal.String())
}

func TestMidineroParserTransfer(t *testing.T) {
	html := `<html><body><table>
<tr><td><div>Enviada</div></td><td><b>05/05/2024 09:00</b></td></tr>
<tr><td><div>Cuenta origen</div></td><td><b>1234567</b></td></tr>
<tr><td><div>Institución destino</div></td><td><b>BROU</b></td></tr>
<tr><td><div>Moneda</div></td><td><b>Dólares</b></td></tr>
<tr><td><div>Total Pesos</div></td><td>$ 500,00</td></tr>
</table></body></html>`
	raw := htmlEmail(MidineroSender, "Tu transferencia ha sido acreditada", "<mid-3@midinero.com.uy>", html)

	result := NewMidineroParser().Parse(parseRaw(t, raw))
	require.Equal(t, models.StatusParsed, result.Status)

	cand := result.Candidate
	assert.Equal(t, "Transferencia a BROU", cand.Description)
	assert.Equal(t, "midinero:1234567", cand.Source)
	assert.Equal(t, "500.00", cand.Amount.Decimal.String())
}

func TestMidineroParserNotWalletMessage(t *testing.T) {
	raw := plainEmail("other@example.com", "Aviso consumo por $ 10,00", "<mid-4@example.com>",
		"Unrelated body.\r\n")

	result := NewMidineroParser().Parse(parseRaw(t, raw))
	assert.Equal(t, models.StatusNoMatch, result.Status)
}

func TestMidineroParserUnknownSubject(t *testing.T) {
	raw := plainEmail(MidineroSender, "Novedades de tu cuenta", "<mid-5@midinero.com.uy>",
		"body\r\n")

	result := NewMidineroParser().Parse(parseRaw(t, raw))
	assert.Equal(t, models.StatusNoMatch, result.Status)
}

func TestNormalizeCurrencyName(t *testing.T) {
	assert.Equal(t, "UYU", normalizeCurrencyName("Pesos Uruguayos"))
	assert.Equal(t, "USD", normalizeCurrencyName("Dólares"))
	assert.Equal(t, "USD", normalizeCurrencyName("USD"))
	assert.Equal(t, "EUR", normalizeCurrencyName("Euros"))
	assert.Equal(t, "UYU", normalizeCurrencyName(""))
	assert.Equal(t, "UYU", normalizeCurrencyName("Moneda rara"))
}

func TestParseLocaleAmount(t *testing.T) {
	d, ok := parseLocaleAmount("$ 1.234,56")
	require.True(t, ok)
	assert.Equal(t, "1234.56", d.String())

	d, ok = parseLocaleAmount("450,00")
	require.True(t, ok)
	assert.Equal(t, "450.00", d.String())

	_, ok = parseLocaleAmount("")
	assert.False(t, ok)
}
