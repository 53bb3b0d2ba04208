package soti

import (
	"fmt"
	"strconv"
)

// NodeID names a subsystem on the satellite bus.
type NodeID byte

const (
	NodeCDH  NodeID = 0
	NodePWR  NodeID = 1
	NodeADCS NodeID = 2
	NodePLD  NodeID = 3

	// Recipient of commands that any subsystem handles.
	NodeUnspecified NodeID = 0xff
)

var nodeNames = map[NodeID]string{
	NodeCDH:         "CDH",
	NodePWR:         "PWR",
	NodeADCS:        "ADCS",
	NodePLD:         "PLD",
	NodeUnspecified: "ALL",
}

var nodeDisplayNames = map[NodeID]string{
	NodeCDH:         "CDH",
	NodePWR:         "Power",
	NodeADCS:        "ADCS",
	NodePLD:         "Payload",
	NodeUnspecified: "All",
}

// Nodes lists the addressable subsystems in id order.
var Nodes = []NodeID{NodeCDH, NodePWR, NodeADCS, NodePLD}

func (n NodeID) Valid() bool {
	return n <= NodePLD
}

func (n NodeID) String() string {
	if s, ok := nodeNames[n]; ok {
		return s
	}

	return strconv.Itoa(int(n))
}

func (n NodeID) DisplayName() string {
	if s, ok := nodeDisplayNames[n]; ok {
		return s
	}

	return n.String()
}

func (n NodeID) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

func (n *NodeID) UnmarshalText(text []byte) error {
	var v, err = ParseNodeID(string(text))
	if err != nil {
		return err
	}

	*n = v
	return nil
}

// ParseNodeID accepts a name ("PWR", "Power", "all") or a number.
func ParseNodeID(s string) (NodeID, error) {
	var name = normalizeName(s)

	switch name {
	case "ALL", "BROADCAST", "UNSPECIFIED":
		return NodeUnspecified, nil
	case "POWER":
		return NodePWR, nil
	case "PAYLOAD":
		return NodePLD, nil
	}

	for id, n := range nodeNames {
		if n == name {
			return id, nil
		}
	}

	if v, err := strconv.ParseUint(name, 0, 8); err == nil {
		if NodeID(v).Valid() || NodeID(v) == NodeUnspecified {
			return NodeID(v), nil
		}
	}

	return 0, fmt.Errorf("unknown node %q", s)
}
