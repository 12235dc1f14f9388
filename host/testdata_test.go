package host

// emptyModule is the smallest valid WASM module: no imports, no exports.
var emptyModule = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// hookModule exports two () -> i64 functions: "register" returns a null
// response and "before_build" never returns.
var hookModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type section: () -> i64
	0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7e,
	// function section: two functions of type 0
	0x03, 0x03, 0x02, 0x00, 0x00,
	// export section
	0x07, 0x1b, 0x02,
	0x08, 'r', 'e', 'g', 'i', 's', 't', 'e', 'r', 0x00, 0x00,
	0x0c, 'b', 'e', 'f', 'o', 'r', 'e', '_', 'b', 'u', 'i', 'l', 'd', 0x00, 0x01,
	// code section
	0x0a, 0x10, 0x02,
	// register: i64.const 0
	0x04, 0x00, 0x42, 0x00, 0x0b,
	// before_build: loop { br 0 }; i64.const 0
	0x09, 0x00, 0x03, 0x40, 0x0c, 0x00, 0x0b, 0x42, 0x00, 0x0b,
}
