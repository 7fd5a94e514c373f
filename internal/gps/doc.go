// Package gps reads the GNSS receiver's NMEA output.
//
// Sentence assembly is byte-oriented and never blocks, so it can be polled
// from the capture loop. The fix tracker is best effort and only feeds the
// status surfaces. It understands the three sentences the receiver is set
// up to send: RMC (position, speed, track, receiver time), GGA (quality,
// satellites, altitude) and GSA (2D/3D mode, DOPs).
package gps
