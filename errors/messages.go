package errors

// message templates, one per Errno
const (
	msgUnalignedAccess = "bus error: misaligned access"
	msgUnmappedAddress = "bus error: unmapped address"

	msgUnknownGTEFunction = "gte error: unknown function code 0x%02x"

	msgUnknownGP0Command = "gpu error: unknown GP0 command 0x%02x"
	msgUnknownGP1Command = "gpu error: unknown GP1 command 0x%02x"

	msgUnknownCDROMCommand = "cdrom error: unknown command 0x%02x"

	msgBIOSImageSize    = "bios error: image is %d bytes, want exactly %d"
	msgEXEHeaderInvalid = "exe error: bad header magic"
	msgEXEImageTruncated = "exe error: image is shorter than the 2048-byte header"

	msgCueSheetMalformed = "cue sheet error: %v"
	msgCueSheetNoFile    = "cue sheet error: no FILE directive"
	msgDiscImageUnreadable = "disc image error: %v"

	msgSaveStateBadMagic    = "save state error: bad magic"
	msgSaveStateBadVersion  = "save state error: unsupported version %d"
	msgSaveStateTruncated   = "save state error: truncated data"
)
