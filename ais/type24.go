package ais

// Type24A encodes part A of a static data report (message 24), 160 bits.
// The vessel name is uppercased and padded or truncated to exactly 20
// six-bit characters.
func Type24A(mmsi uint32, name string) ([]byte, int) {
	var w Writer
	w.Uint(24, 6)       // message type
	w.Uint(0, 2)        // repeat indicator
	w.Uint(mmsi, 30)    // MMSI
	w.Uint(0, 2)        // part number A
	w.Sixbit(name, 20)  // vessel name
	return w.Bytes(), w.Len()
}
