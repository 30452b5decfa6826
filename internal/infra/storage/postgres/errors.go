package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vietddude/genie/internal/retry"
)

// categorize annotates driver errors with a retry category based on SQLSTATE.
func categorize(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"), pgErr.Code == "57P01":
			// connection exception, admin shutdown
			return retry.Categorize(err, retry.CategoryNetworkUnavailable)
		case pgErr.Code == "40001", pgErr.Code == "40P01":
			// serialization failure, deadlock
			return retry.Categorize(err, retry.CategoryAborted)
		case strings.HasPrefix(pgErr.Code, "53"):
			return retry.Categorize(err, retry.CategoryResourceExhausted)
		case pgErr.Code == "57014":
			return retry.Categorize(err, retry.CategoryDeadlineExceeded)
		case pgErr.Code == "XX000":
			return retry.Categorize(err, retry.CategoryInternal)
		default:
			return retry.Permanent(err)
		}
	}

	if pgconn.SafeToRetry(err) {
		return retry.Categorize(err, retry.CategoryNetworkUnavailable)
	}
	return err
}
