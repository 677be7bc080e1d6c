package model

// Dimension identifies one of the four hardware capacity axes tracked per
// player: processing power, memory, storage throughput and network bandwidth.
type Dimension string

const (
	DimCPU Dimension = "cpu"
	DimRAM Dimension = "ram"
	DimHDD Dimension = "hdd"
	DimNet Dimension = "net"
)

// Dimensions returns all resource dimensions in canonical order.
func Dimensions() []Dimension {
	return []Dimension{DimCPU, DimRAM, DimHDD, DimNet}
}

// Resources holds an amount per dimension. The zero value means "nothing".
// It is a small value type and is always passed/returned by value.
type Resources struct {
	CPU uint64 `json:"cpu" yaml:"cpu"`
	RAM uint64 `json:"ram" yaml:"ram"`
	HDD uint64 `json:"hdd" yaml:"hdd"`
	Net uint64 `json:"net" yaml:"net"`
}

// Get returns the amount for a single dimension.
func (r Resources) Get(dim Dimension) uint64 {
	switch dim {
	case DimCPU:
		return r.CPU
	case DimRAM:
		return r.RAM
	case DimHDD:
		return r.HDD
	case DimNet:
		return r.Net
	}
	return 0
}

// Add returns the per-dimension sum of r and other.
func (r Resources) Add(other Resources) Resources {
	return Resources{
		CPU: r.CPU + other.CPU,
		RAM: r.RAM + other.RAM,
		HDD: r.HDD + other.HDD,
		Net: r.Net + other.Net,
	}
}

// Sub returns r minus other, clamping each dimension at zero so that a
// release can never drive usage negative.
func (r Resources) Sub(other Resources) Resources {
	sub := func(a, b uint64) uint64 {
		if b > a {
			return 0
		}
		return a - b
	}
	return Resources{
		CPU: sub(r.CPU, other.CPU),
		RAM: sub(r.RAM, other.RAM),
		HDD: sub(r.HDD, other.HDD),
		Net: sub(r.Net, other.Net),
	}
}

// Fits reports whether r fits within limit on every dimension.
func (r Resources) Fits(limit Resources) bool {
	return r.CPU <= limit.CPU && r.RAM <= limit.RAM && r.HDD <= limit.HDD && r.Net <= limit.Net
}

// IsZero reports whether every dimension is zero.
func (r Resources) IsZero() bool {
	return r == Resources{}
}
