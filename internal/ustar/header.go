package ustar

// USTAR block layout. Every header is exactly one 512-byte block; field
// offsets and widths follow POSIX.1-1988 ("ustar") verbatim.
const (
	blockSize = 512

	offName     = 0
	szName      = 100
	offMode     = offName + szName
	szMode      = 8
	offUID      = offMode + szMode
	szUID       = 8
	offGID      = offUID + szUID
	szGID       = 8
	offSize     = offGID + szGID
	szSize      = 12
	offMtime    = offSize + szSize
	szMtime     = 12
	offChksum   = offMtime + szMtime
	szChksum    = 8
	offTypeflag = offChksum + szChksum
	szTypeflag  = 1
	offLinkname = offTypeflag + szTypeflag
	szLinkname  = 100
	offMagic    = offLinkname + szLinkname
	szMagic     = 6
	offVersion  = offMagic + szMagic
	szVersion   = 2
	offUname    = offVersion + szVersion
	szUname     = 32
	offGname    = offUname + szUname
	szGname     = 32
	offDevmajor = offGname + szGname
	szDevmajor  = 8
	offDevminor = offDevmajor + szDevmajor
	szDevminor  = 8
	offPrefix   = offDevminor + szDevminor
	szPrefix    = 155
)

const (
	typeRegular   = '0'
	typeDirectory = '5'
)

const (
	magic   = "ustar\x00"
	version = "00"

	modeDir  = 0o755
	modeFile = 0o644
)
