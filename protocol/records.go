package protocol

// Records is a batch of TLV records, kept apart until written out.
type Records [][]byte
