package connector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/lockstep/pkg/l1"
	"github.com/robotalks/lockstep/pkg/l1/comm"
	"github.com/robotalks/lockstep/pkg/l1/comm/mqtt"
	"github.com/robotalks/lockstep/pkg/l1/env"
)

func TestNewConnector(t *testing.T) {
	testCases := []struct {
		url    string
		direct bool
		addr   string
	}{
		{"tcp://10.0.0.5:7700", true, "10.0.0.5:7700"},
		{"ws://10.0.0.5:7780/l1", true, "ws://10.0.0.5:7780/l1"},
		{"mqtt://localhost:1883/lockstep/", false, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			conf := &Config{RegistryURL: tc.url}
			c, err := conf.NewConnector()
			require.NoError(t, err)
			if !tc.direct {
				require.IsType(t, &mqtt.Connector{}, c)
				return
			}
			dc, ok := c.(*comm.DirectConnector)
			require.True(t, ok)
			require.Equal(t, tc.addr, dc.Address)
			require.NotNil(t, dc.Dial)
		})
	}

	_, err := (&Config{RegistryURL: "ftp://host"}).NewConnector()
	require.Error(t, err)
}

func TestDirectDiscover(t *testing.T) {
	c, err := (&Config{RegistryURL: "tcp://10.0.0.5:7700"}).NewConnector()
	require.NoError(t, err)
	infos, err := c.Discover(context.Background())
	require.NoError(t, err)
	require.Equal(t, []l1.ControllerInfo{{Ref: l1.ControllerRef{Type: "direct", ID: "10.0.0.5:7700"}}}, infos)
}

func TestConnectRequiresRefForRegistry(t *testing.T) {
	_, err := (&Config{RegistryURL: "mqtt://localhost:1883/"}).Connect(context.Background())
	require.ErrorIs(t, err, ErrRefRequired)
}

func TestNewConfigCopiesSelector(t *testing.T) {
	Default().Selector["flight"] = "lower"
	defer delete(Default().Selector, "flight")
	conf := NewConfig()
	conf.Selector["side"] = "east"
	require.Equal(t, env.Labels{"flight": "lower", "side": "east"}, conf.Selector)
	require.NotContains(t, Default().Selector, "side")
}
