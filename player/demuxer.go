package player

// Track is the codec information of a container's default track.
type Track struct {
	Channels   int
	SampleRate int
	TimeBase   TimeBase
	Frames     uint64
}

// Packet is one decoded unit of audio. Samples are interleaved by channel.
type Packet struct {
	TS      uint64
	Samples []float32
}

// Demuxer reads decoded packets from one open container.
type Demuxer interface {
	// Track describes the default track.
	Track() Track
	// ReadPacket decodes the next packet. It returns io.EOF when the stream is
	// exhausted; any other error means the packet could not be decoded.
	ReadPacket() (Packet, error)
	// Seek positions the demuxer at or before t.
	Seek(t Time) error
	Close() error
}
