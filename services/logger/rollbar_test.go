package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/ukmiverse/ukmiverse/core"
	"github.com/ukmiverse/ukmiverse/core/user"
)

func newTestLogger() (*RollbarLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "TEST : ", 0), &core.Config{Env: "TEST"})
	logger.Enable(false)
	return logger, &buf
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger, _ := newTestLogger()
	usr := user.User{ID: "42", Username: "rina", Email: "rina@ukm.test"}
	err := errors.New("boom")
	extra := map[string]interface{}{"candidate": "x.jpg"}

	tests := []struct {
		name string
		args []interface{}
		want []interface{}
	}{
		{name: "msg only", want: []interface{}{"msg"}},
		{name: "user dropped", args: []interface{}{err, usr}, want: []interface{}{"msg", err}},
		{name: "user ptr dropped", args: []interface{}{&usr, extra}, want: []interface{}{"msg", extra}},
		{name: "second user dropped too", args: []interface{}{usr, usr}, want: []interface{}{"msg"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, logger.prepare("msg", tt.args))
		})
	}
}

func TestRollbarLogger_print(t *testing.T) {
	logger, buf := newTestLogger()

	logger.Warn("avatar: all 3 candidates failed", errors.New("timeout"), user.User{ID: "u-7f3c"})
	out := buf.String()
	assert.Contains(t, out, "TEST : [WARN] avatar: all 3 candidates failed")
	assert.Contains(t, out, "timeout")
	assert.NotContains(t, out, "u-7f3c")
}
