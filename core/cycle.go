package core

import (
	"sync"

	"github.com/fluxionwatt/modbusgw/internal/config"
	"github.com/fluxionwatt/modbusgw/internal/modbusgw"
	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Cycle bundles every long-lived dependency the HTTP layer and background
// workers share for the lifetime of one server process.
type Cycle struct {
	Conf         *config.Config
	DB           *gorm.DB
	Logger       logrus.FieldLogger
	MQTT         *mqtt.Server // embedded broker; nil when disabled
	Mgr          *modbusgw.ClientManager
	Cache        *modbusgw.Cache
	Metrics      *modbusgw.Metrics
	Publisher    *modbusgw.Publisher
	Pipeline     *modbusgw.Pipeline
	Poller       *modbusgw.Poller
	AccessLogger *logrus.Logger
	WG           *sync.WaitGroup
}
