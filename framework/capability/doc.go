// Package capability validates and loads tagged providers.
//
// A provider carries a capability tag ("command", "event", "routes") either
// from its registration entry or from its class definition. Before anything
// is resolved, the Loader checks that every tagged provider has a consumer and
// a baseline marker, and reports all offenders in one
// MissingCapabilityMetadataError. Load then resolves each tagged provider in
// its own module and hands it to the consumer.
//
//	loader := capability.NewLoader(c).Use(commands.NewConsumer(reg), events.NewConsumer(bus))
//	if err := loader.Load(ctx); err != nil {
//	    return err
//	}
package capability
