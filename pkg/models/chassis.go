package models

// Chassis owns exactly SlotsPerChassis boards, indexed by slot-1.
type Chassis struct {
	Number int                    `json:"chassisNumber"`
	Name   string                 `json:"chassisName"`
	Boards [SlotsPerChassis]Board `json:"boards"`
}

// Board returns the board in a slot (1..14).
func (c *Chassis) Board(slot int) (*Board, bool) {
	if !IsValidSlot(slot) {
		return nil, false
	}
	return &c.Boards[slot-1], true
}

// BoardByAddress finds a board by its network address.
func (c *Chassis) BoardByAddress(address string) (*Board, bool) {
	for i := range c.Boards {
		if c.Boards[i].Address == address {
			return &c.Boards[i], true
		}
	}
	return nil, false
}

// ReplaceBoards swaps in a full set of boards.
func (c *Chassis) ReplaceBoards(boards [SlotsPerChassis]Board) {
	c.Boards = boards
}

func (c *Chassis) CountNormal() int {
	return c.count(func(b *Board) bool { return b.Status == BoardStatusNormal })
}

func (c *Chassis) CountAbnormal() int {
	return c.count(func(b *Board) bool { return b.Status == BoardStatusAbnormal })
}

func (c *Chassis) CountOffline() int {
	return c.count(func(b *Board) bool { return b.Status == BoardStatusOffline })
}

func (c *Chassis) TotalTasks() int {
	total := 0
	for i := range c.Boards {
		total += len(c.Boards[i].Tasks)
	}
	return total
}

func (c *Chassis) count(match func(*Board) bool) int {
	n := 0
	for i := range c.Boards {
		if match(&c.Boards[i]) {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (c Chassis) Clone() Chassis {
	for i := range c.Boards {
		c.Boards[i] = c.Boards[i].Clone()
	}
	return c
}
