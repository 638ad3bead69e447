package config

import (
	"swrgateway/pkg/gateway"
	"swrgateway/pkg/poller"
	"swrgateway/pkg/storage"
)

type Config struct {
	PollerMgr   *poller.Manager
	Store       storage.Storage
	Publisher   *poller.Publisher
	GatewayMeta *gateway.GatewayMeta
	CertFile    string
	KeyFile     string
}
