package cmdapp

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "test",
		Long:  `test`,
		Run:   func(cmd *cobra.Command, args []string) {}}
}

func TestReadEnvironmentVariable(t *testing.T) {
	os.Setenv("MONGO_URL", "olia")
	InitApplication(newRootCmd())

	assert.Equal(t, "olia", Config.GetString("mongo.url"))
}

func TestReadConfig(t *testing.T) {
	initAppFromTempFile(t, "mongo:\n     url: olia\n")

	assert.Equal(t, "olia", Config.GetString("mongo.url"))
}

func TestEnvBeatsConfig(t *testing.T) {
	os.Setenv("MONGO_URL", "xxxx")
	initAppFromTempFile(t, "mongo:\n     url: olia\n")

	assert.Equal(t, "xxxx", Config.GetString("mongo.url"))
}

func TestDefaultLogger(t *testing.T) {
	initDefaultLevel()
	initAppFromTempFile(t, "")

	assert.Equal(t, "info", Log.GetLevel().String())
}

func TestLoggerInitFromConfig(t *testing.T) {
	initDefaultLevel()
	initAppFromTempFile(t, "logger:\n    level: trace\n")

	assert.Equal(t, "trace", Log.GetLevel().String())
}

func initAppFromTempFile(t *testing.T, data string) {
	f, err := os.CreateTemp("", "test.*.yml")
	assert.Nil(t, err)
	f.WriteString(data)
	f.Sync()

	defer os.Remove(f.Name())

	Config.SetConfigFile(f.Name())
	err = Config.ReadInConfig()
	assert.Nil(t, err)
	initLog()
}

func initDefaultLevel() {
	Log.SetLevel(logrus.InfoLevel)
}
