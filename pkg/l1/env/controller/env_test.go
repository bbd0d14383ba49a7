package controller

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/us1.go/pkg/l1"
	"github.com/robotalks/us1.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/us1.go/pkg/l1/comm/websocket"
)

func TestNewEnv(t *testing.T) {
	conf := NewConfig()
	conf.Info.Ref = l1.ControllerRef{Type: "us1", ID: "test"}
	conf.MQTTBrokerURL, conf.WebsocketAddr = "", ""
	env, err := conf.NewEnv()
	require.NoError(t, err)
	require.Empty(t, env.Registrar.Registrars)
	require.Empty(t, env.RegistryURLs)

	conf.MQTTBrokerURL = "mqtt://localhost:1883/robo/"
	env, err = conf.NewEnv()
	require.NoError(t, err)
	require.Len(t, env.Registrar.Registrars, 1)
	reg := env.Registrar.Registrars[0].(*mqtt.Registrar)
	require.Equal(t, "robo/", reg.Queue.TopicPrefix)
	require.Equal(t, []string{conf.MQTTBrokerURL}, env.RegistryURLs)

	conf.MQTTBrokerURL, conf.WebsocketAddr = "", ":0"
	env, err = conf.NewEnv()
	require.NoError(t, err)
	require.Len(t, env.Registrar.Registrars, 1)
	require.IsType(t, &websocket.Server{}, env.Registrar.Registrars[0])
	require.Empty(t, env.RegistryURLs)

	conf.MQTTBrokerURL = "gopher://localhost"
	_, err = conf.NewEnv()
	require.Error(t, err)

	conf.Info.Ref.Type = ""
	_, err = conf.NewEnv()
	require.Error(t, err)
}

func TestParseControllerRef(t *testing.T) {
	ref, err := l1.ParseControllerRef("us1/front")
	require.NoError(t, err)
	require.Equal(t, l1.ControllerRef{Type: "us1", ID: "front"}, ref)
	for _, s := range []string{"us1", "/front", "us1/", "us1/a/b", "us1/+"} {
		_, err = l1.ParseControllerRef(s)
		require.Error(t, err, s)
	}
}

func TestControllerFlag(t *testing.T) {
	ref := l1.ControllerRef{Type: "us1", ID: "old"}
	v := refValue{&ref}
	require.NoError(t, v.Set("us1/front"))
	require.Equal(t, l1.ControllerRef{Type: "us1", ID: "front"}, ref)
	require.Equal(t, "us1/front", v.String())
	require.Error(t, v.Set("front"))
	require.Equal(t, "front", ref.ID, "unchanged on error")
	require.Empty(t, refValue{}.String())
}
