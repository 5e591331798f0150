package models

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/config"
	"gorm.io/gorm"
)

// Tenant-scoped sequential identifiers.
//
// Funeral codes:  FUN-YYYY-NNN   (3-digit, restarts at 1 each year)
// Quote numbers:  QUO-YYYY-NNNN  (4-digit, restarts at 1 each year)
//
// Callers must hold the agency row lock (LockAgency) in the SAME
// transaction before calling Next*: the lock is what serializes the
// read-max/increment window. Numbers within a tenant+year scope are
// strictly increasing; a rolled-back transaction may waste a number.

const (
	FuneralCodePrefix = "FUN"
	QuoteNumberPrefix = "QUO"

	funeralCodeWidth = 3
	quoteNumberWidth = 4
)

var sequenceTail = regexp.MustCompile(`^[A-Z]+-\d{4}-(\d+)$`)

func NextFuneralCode(tx *gorm.DB, agencyId string, year int) (string, error) {
	last, err := lastCodeInScope(tx, &Funeral{}, "code", agencyId, FuneralCodePrefix, year)
	if err != nil {
		return "", err
	}
	seq := parseSequenceTail(last, agencyId)
	return FormatFuneralCode(year, seq+1), nil
}

func NextQuoteNumber(tx *gorm.DB, agencyId string, year int) (string, error) {
	last, err := lastCodeInScope(tx, &Quote{}, "quote_number", agencyId, QuoteNumberPrefix, year)
	if err != nil {
		return "", err
	}
	seq := parseSequenceTail(last, agencyId)
	return FormatQuoteNumber(year, seq+1), nil
}

func FormatFuneralCode(year int, sequence int) string {
	return fmt.Sprintf("%s-%d-%0*d", FuneralCodePrefix, year, funeralCodeWidth, sequence)
}

func FormatQuoteNumber(year int, sequence int) string {
	return fmt.Sprintf("%s-%d-%0*d", QuoteNumberPrefix, year, quoteNumberWidth, sequence)
}

// lastCodeInScope reads the current maximum code for a tenant+year scope.
// Codes are zero-padded up to the pad width; once a scope outgrows it the
// tails get longer, so longer codes must sort above shorter ones or the
// scan would hand back 999 after 1000 and re-issue a taken code.
func lastCodeInScope(tx *gorm.DB, model any, column string, agencyId string, prefix string, year int) (string, error) {
	scope := fmt.Sprintf("%s-%d-%%", prefix, year)
	var codes []string
	err := tx.Model(model).
		Where("agency_id = ? AND "+column+" LIKE ?", agencyId, scope).
		Order("CHAR_LENGTH(" + column + ") DESC, " + column + " DESC").
		Limit(1).
		Pluck(column, &codes).Error
	if err != nil {
		return "", err
	}
	if len(codes) == 0 {
		return "", nil
	}
	return codes[0], nil
}

// parseSequenceTail extracts the numeric tail of the last code in scope.
// A corrupt value restarts the scope at 1 instead of blocking all future
// creation on bad data; the anomaly is logged.
func parseSequenceTail(last string, agencyId string) int {
	if last == "" {
		return 0
	}
	m := sequenceTail.FindStringSubmatch(last)
	if m == nil {
		config.LogWarn(config.GetLogger(), "numberSequence.go", "parseSequenceTail",
			"corrupt sequence value, restarting scope at 1",
			map[string]string{"agency_id": agencyId, "value": last})
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		config.LogWarn(config.GetLogger(), "numberSequence.go", "parseSequenceTail",
			"corrupt sequence value, restarting scope at 1",
			map[string]string{"agency_id": agencyId, "value": last})
		return 0
	}
	return n
}
