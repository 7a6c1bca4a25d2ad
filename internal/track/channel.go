package track

// Kind enumerates the broadcast channel families.
type Kind int

const (
	KindOrder Kind = iota
	KindRestaurant
	KindDriver
	KindAdmins
)

// Channel identifies one broadcast group. Routing switches on Kind so the
// compiler keeps the cases honest; the admins channel carries an empty ID.
type Channel struct {
	Kind Kind
	ID   string
}

func OrderChannel(id string) Channel      { return Channel{Kind: KindOrder, ID: id} }
func RestaurantChannel(id string) Channel { return Channel{Kind: KindRestaurant, ID: id} }
func DriverChannel(id string) Channel     { return Channel{Kind: KindDriver, ID: id} }
func AdminsChannel() Channel              { return Channel{Kind: KindAdmins} }

func (c Channel) String() string {
	switch c.Kind {
	case KindOrder:
		return "order:" + c.ID
	case KindRestaurant:
		return "restaurant:" + c.ID
	case KindDriver:
		return "driver:" + c.ID
	case KindAdmins:
		return "admins"
	}
	return "unknown:" + c.ID
}
