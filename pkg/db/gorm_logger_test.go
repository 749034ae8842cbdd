package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/pasabuy/pasabuy-backend/pkg/logger"
)

func TestQueryLoggerSkipsFastAndNotFound(t *testing.T) {
	var buf bytes.Buffer
	q := newQueryLogger(logger.New(logger.Options{ServiceName: "test", Output: &buf, Format: logger.FormatJSON}), time.Second)
	stmt := func() (string, int64) { return "SELECT 1", 1 }

	q.Trace(context.Background(), time.Now(), stmt, nil)
	q.Trace(context.Background(), time.Now(), stmt, gorm.ErrRecordNotFound)
	assert.Zero(t, buf.Len())

	q.Trace(context.Background(), time.Now().Add(-2*time.Second), stmt, nil)
	assert.Contains(t, buf.String(), "slow query")
	assert.Contains(t, buf.String(), `"sql":"SELECT 1"`)

	buf.Reset()
	q.Trace(context.Background(), time.Now(), stmt, errors.New("relation does not exist"))
	assert.Contains(t, buf.String(), "query failed")
}
