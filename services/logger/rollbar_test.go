package logsvc

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/user"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	logger := NewRollbarLogger(log, core.NewTestConfig())
	usr := user.User{ID: "u1", Name: "Amani", Role: user.RoleTeacher}
	logger.Error("saving class", errors.New("boom"), map[string]interface{}{"class_id": "c1"}, usr)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "saving class", line["msg"])
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "c1", line["class_id"])
	assert.Equal(t, "u1", line["user_id"])
	assert.Equal(t, "teacher", line["role"])
}
