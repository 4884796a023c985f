package zcldef

import (
	"fmt"

	"github.com/supby/zbinder/internal/logger"
)

type ZCLDefService interface {
	ClusterName(clusterId uint16) string
}

type zclDefService struct {
	zclDefMap map[uint16]ClusterDefinition
}

// ClusterName returns the cluster name, or its hex id when the cluster is unknown.
func (zd *zclDefService) ClusterName(clusterId uint16) string {
	if def, ok := zd.zclDefMap[clusterId]; ok {
		return def.Name
	}

	return fmt.Sprintf("0x%04x", clusterId)
}

// New loads cluster definitions from filename. A missing or broken file is
// logged and results in a service without definitions.
func New(filename string, log logger.Logger) ZCLDefService {
	zclDef, err := loadFromFile(filename)
	if err != nil {
		log.Warn("Failed to load ZCL definition from file %v: %v", filename, err)
		zclDef = make(map[uint16]ClusterDefinition)
	}

	return &zclDefService{
		zclDefMap: zclDef,
	}
}
