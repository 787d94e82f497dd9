package logfields

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		attr slog.Attr
		key  string
		val  string
	}{
		{Key("streak"), KeyKey, "streak"},
		{Day("2024-01-02"), KeyDay, "2024-01-02"},
		{Source("todo"), KeySource, "todo"},
		{Count(3), KeyCount, "3"},
		{Transition("extended"), KeyTransition, "extended"},
		{Job("daily-reconcile"), KeyJob, "daily-reconcile"},
		{Path("/api/streak"), KeyPath, "/api/streak"},
		{Method("GET"), KeyMethod, "GET"},
		{Status(404), KeyStatus, "404"},
		{Event("streak"), KeyEvent, "streak"},
		{Error(errors.New("boom")), KeyError, "boom"},
		{Error(nil), KeyError, ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.key, c.attr.Key)
		assert.Equal(t, c.val, c.attr.Value.String())
	}
}
