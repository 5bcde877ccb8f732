// Package settings navigates the application's global settings area, where
// every service category has its own list page.
package settings

import "fmt"

// Option is a global settings entry that hosts a service list
type Option string

const (
	Databases  Option = "databases"
	Messaging  Option = "messaging"
	Dashboards Option = "dashboards"
	Pipelines  Option = "pipelines"
	MLModels   Option = "mlmodels"
	Storages   Option = "storages"
)

// servicesCategory is the settings menu group all service options live under
const servicesCategory = "services"

var knownOptions = map[Option]bool{
	Databases:  true,
	Messaging:  true,
	Dashboards: true,
	Pipelines:  true,
	MLModels:   true,
	Storages:   true,
}

// Valid reports whether o is a known settings option
func (o Option) Valid() bool {
	return knownOptions[o]
}

// MenuPath returns the data-testid values clicked, in order, to open o
func (o Option) MenuPath() []string {
	return []string{servicesCategory, fmt.Sprintf("%s.%s", servicesCategory, o)}
}

// URLPath returns the route of o's service list
func (o Option) URLPath() string {
	return fmt.Sprintf("/settings/%s/%s", servicesCategory, o)
}

// ServicePath returns the route of a single service's details page
func (o Option) ServicePath(serviceName string) string {
	return fmt.Sprintf("/service/%sServices/%s", o.entityPrefix(), serviceName)
}

// entityPrefix maps an option to the entity family used in service routes
func (o Option) entityPrefix() string {
	switch o {
	case Databases:
		return "database"
	case Messaging:
		return "messaging"
	case Dashboards:
		return "dashboard"
	case Pipelines:
		return "pipeline"
	case MLModels:
		return "mlmodel"
	case Storages:
		return "storage"
	default:
		return string(o)
	}
}

func (o Option) String() string {
	return string(o)
}
