// Package reading defines the sensor reading accepted by the bridge and the
// checks applied to it before it is encoded.
//
// A reading travels through three steps, in order:
//
//	r, err := reading.Decode(line)      // ErrMalformed on bad JSON / missing fields
//	err = reading.Validate(r)           // ErrOutOfRange on impossible physical values
//	res := resolver.Resolve(r.Timestamp) // never fails; falls back to now
//
// Physical bounds follow the SHT20 datasheet: -40..125 °C and 0..100 %RH.
package reading
