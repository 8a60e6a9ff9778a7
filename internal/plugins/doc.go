// Package plugins provides ready-made pipeline plugins: authorization,
// request IDs, network activity callbacks, structured logging, Prometheus
// metrics and exchange recording.
//
// Every constructor returns a ports.Plugin. Plugins are applied in the order
// given to pipeline.WithPlugins.
package plugins
