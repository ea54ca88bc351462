package models

import "fmt"

const (
	DefaultChassisNamePattern = "chassis-%02d"
	DefaultBoardNamePattern   = "board-%02d"
	DefaultIPPattern          = "192.168.%d.%d"
	DefaultIPOffset           = 100
)

// TopologyOptions controls names and addresses produced by NewTopology.
// IPPattern takes the chassis number and IPOffset+slot, in that order.
type TopologyOptions struct {
	ChassisNamePattern string
	BoardNamePattern   string
	IPPattern          string
	IPOffset           int
}

func (o TopologyOptions) withDefaults() TopologyOptions {
	if o.ChassisNamePattern == "" {
		o.ChassisNamePattern = DefaultChassisNamePattern
	}
	if o.BoardNamePattern == "" {
		o.BoardNamePattern = DefaultBoardNamePattern
	}
	if o.IPPattern == "" {
		o.IPPattern = DefaultIPPattern
	}
	if o.IPOffset <= 0 {
		o.IPOffset = DefaultIPOffset
	}
	return o
}

// BoardAddress returns the address assigned to a chassis/slot pair.
func (o TopologyOptions) BoardAddress(chassis, slot int) string {
	o = o.withDefaults()
	return fmt.Sprintf(o.IPPattern, chassis, o.IPOffset+slot)
}

// NewChassis builds a chassis with all 14 boards in Unknown status.
func NewChassis(number int, opts TopologyOptions) Chassis {
	opts = opts.withDefaults()
	c := Chassis{
		Number: number,
		Name:   fmt.Sprintf(opts.ChassisNamePattern, number),
	}
	for slot := 1; slot <= SlotsPerChassis; slot++ {
		c.Boards[slot-1] = NewBoard(number, slot,
			fmt.Sprintf(opts.BoardNamePattern, slot),
			opts.BoardAddress(number, slot))
	}
	return c
}

// NewTopology builds the full 9x14 grid.
func NewTopology(opts TopologyOptions) [ChassisCount]Chassis {
	var all [ChassisCount]Chassis
	for i := range all {
		all[i] = NewChassis(i+1, opts)
	}
	return all
}
