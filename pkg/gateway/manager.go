package gateway

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"k8s.io/klog/v2"

	"swrgateway/pkg/utils/randutil"
	"swrgateway/pkg/utils/uuidutil"
)

const metaFile = "gateway.json"

type Manager struct {
	dataDir     string
	gatewayMeta *GatewayMeta
}

func NewGatewayManager(dataDir string) *Manager {
	return &Manager{
		dataDir:     dataDir,
		gatewayMeta: &GatewayMeta{},
	}
}

// Init loads the persisted gateway identity, creating one on first boot.
func (m *Manager) Init() error {
	if err := os.MkdirAll(m.dataDir, 0711); err != nil {
		return err
	}
	path := filepath.Join(m.dataDir, metaFile)
	data, err := os.ReadFile(path)
	if err != nil && os.IsNotExist(err) {
		m.gatewayMeta = &GatewayMeta{
			Name:    "swrgateway",
			ID:      uuidutil.UUID(),
			Version: strconv.FormatUint(randutil.Uint64n(), 10),
			ModTime: time.Now(),
		}
		klog.V(3).InfoS("Gateway information not exist,been created automatically", "gatewayId", m.gatewayMeta.ID)
		out, err := json.Marshal(m.gatewayMeta)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, out, 0644); err != nil {
			klog.V(2).InfoS("Failed to create gateway information", "err", err)
			return err
		}
		return nil
	} else if err != nil {
		return err
	}
	if err := json.Unmarshal(data, m.gatewayMeta); err != nil {
		klog.V(2).InfoS("Failed to unmarshal gateway information", "err", err)
		return err
	}
	return nil
}

func (m *Manager) GetGatewayMeta() *GatewayMeta {
	return m.gatewayMeta
}
