package dataset

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Veraticus/merchcat/internal/model"
)

// UnknownMerchant is used when a statement row has an amount but no text.
const UnknownMerchant = "unknown"

var (
	amountRegex = regexp.MustCompile(`\$?(\d{1,3}(?:,\d{3})*(?:\.\d{2}))`)
	dateRegex   = regexp.MustCompile(`(\d{4}-\d{2}-\d{2}|\d{2}/\d{2}/\d{4})`)
)

const merchantTrimSet = " -:|,\t\n"

// ParseStatementText extracts transactions from text copied out of a card
// statement. Two layouts are recognized:
//
//   - a date on its own line, followed by a merchant line and then a line
//     holding the amount;
//   - a single line holding the merchant and the amount, optionally a date.
//
// Lines without an amount are ignored.
func ParseStatementText(text string) []model.Transaction {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}

	var transactions []model.Transaction
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if line == "" {
			continue
		}

		if date := dateRegex.FindString(line); date != "" && !amountRegex.MatchString(line) {
			if tx, last, ok := parseBlock(lines, i, date); ok {
				transactions = append(transactions, tx)
				i = last
				continue
			}
		}

		if tx, ok := parseSingleLine(line); ok {
			transactions = append(transactions, tx)
		}
	}

	return transactions
}

// parseBlock reads a multi-line record whose date line is at start. It
// returns the index of the amount line.
func parseBlock(lines []string, start int, date string) (model.Transaction, int, bool) {
	merchant := ""
	j := start + 1
	for j < len(lines) {
		l := lines[j]
		if l == "" || dateRegex.MatchString(l) {
			j++
			continue
		}
		if amountRegex.MatchString(l) {
			break
		}
		merchant = l
		j++
		break
	}

	for k := j; k < len(lines); k++ {
		m := amountRegex.FindStringSubmatch(lines[k])
		if m == nil {
			continue
		}
		amount, err := parseStatementAmount(m[1])
		if err != nil {
			return model.Transaction{}, 0, false
		}
		return newStatementTransaction(cleanMerchant(merchant), amount, date), k, true
	}

	return model.Transaction{}, 0, false
}

func parseSingleLine(line string) (model.Transaction, bool) {
	matches := amountRegex.FindAllStringSubmatch(line, -1)
	if len(matches) == 0 {
		return model.Transaction{}, false
	}
	amount, err := parseStatementAmount(matches[len(matches)-1][1])
	if err != nil {
		return model.Transaction{}, false
	}
	return newStatementTransaction(cleanMerchant(line), amount, dateRegex.FindString(line)), true
}

func cleanMerchant(s string) string {
	s = amountRegex.ReplaceAllString(s, "")
	s = dateRegex.ReplaceAllString(s, "")
	s = strings.Trim(s, merchantTrimSet)
	if s == "" {
		return UnknownMerchant
	}
	return s
}

func parseStatementAmount(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

func newStatementTransaction(merchant string, amount float64, date string) model.Transaction {
	tx := model.Transaction{
		Name:   merchant,
		Amount: amount,
		Date:   ParseDate(date),
	}
	tx.Hash = tx.GenerateHash()
	return tx
}
