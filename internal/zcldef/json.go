package zcldef

import (
	"encoding/json"
	"os"
)

type jsonZclMap map[string]jsonClusterDefinition

type jsonClusterDefinition struct {
	ID         uint16
	Attributes map[string]AttributeDefinition
}

func loadFromFile(filename string) (map[uint16]ClusterDefinition, error) {
	jsonBuf, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var jsonLoadedMap jsonZclMap
	if err := json.Unmarshal(jsonBuf, &jsonLoadedMap); err != nil {
		return nil, err
	}

	ret := make(map[uint16]ClusterDefinition)

	for clusterName, jsonClusterDef := range jsonLoadedMap {
		attr := make(map[uint16]AttributeDefinition)
		for attrName, a := range jsonClusterDef.Attributes {
			a.Name = attrName
			attr[a.ID] = a
		}

		ret[jsonClusterDef.ID] = ClusterDefinition{
			ID:         jsonClusterDef.ID,
			Name:       clusterName,
			Attributes: attr,
		}
	}

	return ret, nil
}
