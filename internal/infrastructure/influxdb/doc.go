// Package influxdb reads back what the bridge wrote to InfluxDB.
//
// Writes go through the forwarder package, one raw line protocol POST per
// reading. This package uses the official influxdb-client-go v2 library for
// everything else: the startup probe, health checks, and Flux queries that
// serve reading history to the ops API.
//
// # Usage
//
//	client := influxdb.New(cfg.Upstream, httpClient)
//	defer client.Close()
//
//	if err := client.Ping(ctx); err != nil {
//	    logger.Warn("upstream not reachable", "error", err)
//	}
//
//	latest, err := client.Latest(ctx, "")
//	history, err := client.Range(ctx, influxdb.RangeQuery{Start: from, Stop: to, SensorID: "S1"})
//
// # Thread Safety
//
// All methods are safe for concurrent use.
package influxdb
