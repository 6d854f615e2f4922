package graph

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	types "github.com/yungbote/skillgraph-backend/internal/domain"
)

var errClosed = errors.New("backend closed")

// classify marks transport level failures as store unavailability and leaves
// everything else untouched.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	switch {
	case errors.Is(err, types.ErrStoreUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, driver.ErrBadConn),
		errors.As(err, &netErr):
		return types.Unavailable(op, err)
	default:
		return err
	}
}
