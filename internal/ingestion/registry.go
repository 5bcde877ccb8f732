package ingestion

import "fmt"

// Factory builds a fresh fixture. Every call picks a new unique service name.
type Factory func() Service

// Registry returns the fixture factories in run order. Airflow is only
// available in the open source build.
func Registry(env Env, isOSS bool) []Factory {
	constructors := []func(Env) Service{
		func(env Env) Service { return NewS3(env) },
		func(env Env) Service { return NewMetabase(env) },
		func(env Env) Service { return NewMySQL(env) },
		func(env Env) Service { return NewBigQuery(env) },
		func(env Env) Service { return NewKafka(env) },
		func(env Env) Service { return NewMlFlow(env) },
		func(env Env) Service { return NewSnowflake(env) },
		func(env Env) Service { return NewSuperset(env) },
		func(env Env) Service { return NewPostgres(env) },
		func(env Env) Service { return NewRedshiftWithDBT(env) },
	}
	if isOSS {
		constructors = append(constructors, func(env Env) Service { return NewAirflow(env) })
	}

	factories := make([]Factory, 0, len(constructors))
	for _, newService := range constructors {
		factories = append(factories, func() Service { return newService(env) })
	}
	return factories
}

// ValidateRegistry fails when two fixtures share a service type, since the
// type names the test group.
func ValidateRegistry(factories []Factory) error {
	seen := make(map[string]bool, len(factories))
	for _, newService := range factories {
		svc := newService()
		t := svc.ServiceType()
		if t == "" {
			return fmt.Errorf("service fixture %T has no service type", svc)
		}
		if seen[t] {
			return fmt.Errorf("duplicate service type %q", t)
		}
		seen[t] = true
	}
	return nil
}
