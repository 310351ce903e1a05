// Package metrics collects the measurements of a dbjourney run.
//
// A single [Collector] is shared by every virtual user. Scenario code feeds
// it through four kinds of calls:
//
//	collector := metrics.NewCollector()
//	collector.Start()
//
//	collector.RecordRequest(latency, err, &metrics.RequestMetadata{
//		Endpoint:   "registration",
//		Method:     "POST",
//		StatusCode: 200,
//	})
//	collector.RecordCheck("Load registration page", ok)
//	collector.Increment()  // errors counter
//	collector.Record(true) // error_rate sample
//
//	stats := collector.Stats(elapsed)
//
// # Journey metrics
//
// The errors counter and the error_rate rate are never reset during a run.
// Per-check pass and fail counts are kept in first-seen order so reports list
// checks the way the journey performs them.
//
// # Request metrics
//
// Latencies go into an HDR histogram from 1µs to 60s with three significant
// figures. Failed responses are bucketed by step and status code; transport
// failures use the code "ERR" and are labelled with [TransportErrorLabel].
package metrics
