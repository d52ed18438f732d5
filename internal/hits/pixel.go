package hits

// Pixel is the fixed 1x1 transparent GIF returned by every successful beacon
// response, byte-identical regardless of request parameters.
var Pixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, // GIF89a
	0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, // 1x1, global color table
	0x00, 0x00, 0x00, 0xff, 0xff, 0xff, // black + white entries
	0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, // transparent GCE
	0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, // image descriptor
	0x02, 0x02, 0x44, 0x01, 0x00, // image data
	0x3b, // trailer
}

// PixelContentType is the Content-Type for the beacon response body.
const PixelContentType = "image/gif"
