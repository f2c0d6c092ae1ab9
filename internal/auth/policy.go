package auth

// Rule is the minimum caller standing an action requires.
type Rule int

const (
	RulePublic Rule = iota
	RuleAuthenticated
	RuleStaff
	RuleAdmin
)

type Resource string

const (
	ResourceAuth           Resource = "auth"
	ResourceUsers          Resource = "users"
	ResourceProfile        Resource = "profile"
	ResourceCategories     Resource = "categories"
	ResourceMenuItems      Resource = "menu_items"
	ResourceOrders         Resource = "orders"
	ResourceOrderItems     Resource = "order_items"
	ResourcePayments       Resource = "payments"
	ResourceTables         Resource = "tables"
	ResourceReservations   Resource = "reservations"
	ResourceReviews        Resource = "reviews"
	ResourceInventory      Resource = "inventory"
	ResourceStaffSchedules Resource = "staff_schedules"
	ResourceNotifications  Resource = "notifications"
	ResourceDashboard      Resource = "dashboard"
	ResourceReports        Resource = "reports"
	ResourceStudents       Resource = "students"
	ResourceMeals          Resource = "meals"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Policy maps (resource, action) to the rule guarding it. Pairs missing from
// the table are denied.
type Policy map[Resource]map[Action]Rule

func readWrite(read, write Rule) map[Action]Rule {
	return map[Action]Rule{
		ActionRead:   read,
		ActionCreate: write,
		ActionUpdate: write,
		ActionDelete: write,
	}
}

// DefaultPolicy is the cafe's permission table. Row ownership (customers
// seeing only their own orders and so on) is enforced by the services.
var DefaultPolicy = Policy{
	ResourceAuth: {
		ActionCreate: RulePublic,
		ActionDelete: RuleAuthenticated,
	},
	ResourceUsers:      readWrite(RuleStaff, RuleAdmin),
	ResourceProfile:    readWrite(RuleAuthenticated, RuleAuthenticated),
	ResourceCategories: readWrite(RuleAuthenticated, RuleAdmin),
	ResourceMenuItems:  readWrite(RuleAuthenticated, RuleStaff),
	ResourceOrders: {
		ActionRead:   RuleAuthenticated,
		ActionCreate: RuleAuthenticated,
		ActionUpdate: RuleAuthenticated,
		ActionDelete: RuleStaff,
	},
	ResourceOrderItems:     readWrite(RuleAuthenticated, RuleStaff),
	ResourcePayments:       readWrite(RuleAuthenticated, RuleStaff),
	ResourceTables:         readWrite(RuleAuthenticated, RuleStaff),
	ResourceReservations:   readWrite(RuleAuthenticated, RuleAuthenticated),
	ResourceReviews:        readWrite(RuleAuthenticated, RuleAuthenticated),
	ResourceInventory:      readWrite(RuleAuthenticated, RuleStaff),
	ResourceStaffSchedules: readWrite(RuleAuthenticated, RuleStaff),
	ResourceNotifications:  readWrite(RuleAuthenticated, RuleAuthenticated),
	ResourceDashboard:      {ActionRead: RuleStaff},
	ResourceReports:        {ActionRead: RuleStaff},
	ResourceStudents:       readWrite(RuleStaff, RuleStaff),
	ResourceMeals: {
		ActionRead:   RuleStaff,
		ActionCreate: RuleStaff,
	},
}

type Decision int

const (
	Allow Decision = iota
	Unauthenticated
	Forbidden
)

func (p Policy) Evaluate(pr *Principal, res Resource, act Action) Decision {
	rule, ok := p[res][act]
	if !ok {
		if pr == nil {
			return Unauthenticated
		}
		return Forbidden
	}

	if rule == RulePublic {
		return Allow
	}
	if pr == nil {
		return Unauthenticated
	}

	switch rule {
	case RuleAuthenticated:
		return Allow
	case RuleStaff:
		if pr.IsStaffMember() {
			return Allow
		}
	case RuleAdmin:
		if pr.IsAdmin() {
			return Allow
		}
	}
	return Forbidden
}
