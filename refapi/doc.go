// Package refapi is a reference host for the shader debugger.
//
// API implements debugger.APIWrapper over resources held in memory. Math
// intrinsics use package math, sampling is done on the CPU with point or
// bilinear filtering and nearest mip selection, and texture UAVs are read
// and written through the typed texel codec of package value.
//
// The results are not bit-exact with any GPU. The package exists so that
// traces can be produced without a device, for tests and for the command
// line tools.
//
// Typical usage:
//
//	api := refapi.New(logger)
//	api.BindSRV(binding.Slot{Register: 0}, refapi.Texture2D(format, 4, 4, texels))
//	api.BindSampler(binding.Slot{Register: 0}, refapi.Sampler{Filter: refapi.FilterLinear})
//	trace, err := debugger.Run(ctx, program, api, target, cfg)
package refapi
