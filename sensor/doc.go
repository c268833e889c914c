// Package sensor defines the Sensor capability and the built-in sensors.
//
// A sensor decides on its own whether it wants to modify a unit, independent
// of configured rules. The engine queries every sensor and instruments a unit
// with the union of the sensors that answered true.
package sensor
