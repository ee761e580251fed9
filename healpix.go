package main

import (
	"fmt"
	"math"
	"math/bits"
)

const (
	MinResolution = 64
	MaxResolution = 2048
)

var (
	jrll = [12]int{2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4}
	jpll = [12]int{1, 3, 5, 7, 0, 2, 4, 6, 1, 3, 5, 7}
)

// EffectiveResolution snaps r to the nearest power of two and clamps it to
// the resolutions for which tile indexes exist.
func EffectiveResolution(r int) int {
	if r <= 0 {
		return MinResolution
	}
	n := math.Round(math.Log2(float64(r)))
	res := int(math.Pow(2, n))
	if res > MaxResolution {
		res = MaxResolution
	}
	if res < MinResolution {
		res = MinResolution
	}
	return res
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func nsideOrder(nside int) int {
	return bits.TrailingZeros(uint(nside))
}

func nside2npix(nside int) int {
	return 12 * nside * nside
}

func npix2nside(npix int) (int, error) {
	if npix <= 0 || npix%12 != 0 {
		return 0, fmt.Errorf("%d pixels is not a valid HEALPix map size", npix)
	}
	nside := int(math.Round(math.Sqrt(float64(npix / 12))))
	if nside*nside*12 != npix || !isPowerOfTwo(nside) {
		return 0, fmt.Errorf("%d pixels is not a valid HEALPix map size", npix)
	}
	return nside, nil
}

// PixelArea returns the area of one pixel in square degrees.
func PixelArea(nside int) float64 {
	sr := 4 * math.Pi / float64(nside2npix(nside))
	return sr * (180 / math.Pi) * (180 / math.Pi)
}

func isqrt(v int) int {
	r := int(math.Sqrt(float64(v) + 0.5))
	for r*r > v {
		r--
	}
	for (r+1)*(r+1) <= v {
		r++
	}
	return r
}

// spread inserts a zero bit between each bit of v.
func spread(v int) int {
	var r int
	for i := 0; v>>i != 0; i++ {
		r |= (v >> i & 1) << (2 * i)
	}
	return r
}

func compress(v int) int {
	var r int
	for i := 0; v>>(2*i) != 0; i++ {
		r |= (v >> (2 * i) & 1) << i
	}
	return r
}

func nest2xyf(nside, pix int) (int, int, int) {
	npface := nside * nside
	face := pix / npface
	ipf := pix % npface
	return compress(ipf), compress(ipf >> 1), face
}

func xyf2nest(nside, ix, iy, face int) int {
	return face*nside*nside + spread(ix) + spread(iy)<<1
}

func ring2xyf(nside, pix int) (int, int, int) {
	var (
		npix = nside2npix(nside)
		ncap = 2 * nside * (nside - 1)
		nl2  = 2 * nside

		iring, iphi, kshift, nr, face int
	)
	switch {
	case pix < ncap:
		iring = (1 + isqrt(1+2*pix)) >> 1
		iphi = (pix + 1) - 2*iring*(iring-1)
		nr = iring
		face = (iphi - 1) / nr
	case pix < npix-ncap:
		ip := pix - ncap
		tmp := ip / (4 * nside)
		iring = tmp + nside
		iphi = ip - tmp*4*nside + 1
		kshift = (iring + nside) & 1
		nr = nside
		ire, irm := tmp+1, nl2+1-tmp
		ifm := (iphi - ire>>1 + nside - 1) / nside
		ifp := (iphi - irm>>1 + nside - 1) / nside
		switch {
		case ifp == ifm:
			face = ifp | 4
		case ifp < ifm:
			face = ifp
		default:
			face = ifm + 8
		}
	default:
		ip := npix - pix
		iring = (1 + isqrt(2*ip-1)) >> 1
		iphi = 4*iring + 1 - (ip - 2*iring*(iring-1))
		nr = iring
		iring = 2*nl2 - iring
		face = (iphi-1)/nr + 8
	}
	irt := iring - jrll[face]*nside + 1
	ipt := 2*iphi - jpll[face]*nr - kshift - 1
	if ipt >= nl2 {
		ipt -= 8 * nside
	}
	return (ipt - irt) >> 1, (-ipt - irt) >> 1, face
}

func xyf2ring(nside, ix, iy, face int) int {
	var (
		nl4  = 4 * nside
		npix = nside2npix(nside)
		ncap = 2 * nside * (nside - 1)
		jr   = jrll[face]*nside - ix - iy - 1

		nr, before, kshift int
	)
	switch {
	case jr < nside:
		nr = jr
		before = 2 * nr * (nr - 1)
	case jr > 3*nside:
		nr = nl4 - jr
		before = npix - 2*(nr+1)*nr
	default:
		nr = nside
		before = ncap + (jr-nside)*nl4
		kshift = (jr - nside) & 1
	}
	jp := (jpll[face]*nr + ix - iy + 1 + kshift) / 2
	if jp > nl4 {
		jp -= nl4
	} else if jp < 1 {
		jp += nl4
	}
	return before + jp - 1
}

func ring2nest(nside, pix int) int {
	ix, iy, face := ring2xyf(nside, pix)
	return xyf2nest(nside, ix, iy, face)
}

func nest2ring(nside, pix int) int {
	ix, iy, face := nest2xyf(nside, pix)
	return xyf2ring(nside, ix, iy, face)
}

// pix2angRing returns the colatitude and longitude (radians) of the center
// of a RING pixel.
func pix2angRing(nside, pix int) (float64, float64) {
	var (
		npix  = nside2npix(nside)
		ncap  = 2 * nside * (nside - 1)
		fact2 = 4 / float64(npix)
		fact1 = float64(2*nside) * fact2

		z, phi float64
	)
	switch {
	case pix < ncap:
		iring := (1 + isqrt(1+2*pix)) >> 1
		iphi := (pix + 1) - 2*iring*(iring-1)
		z = 1 - float64(iring*iring)*fact2
		phi = (float64(iphi) - 0.5) * (math.Pi / 2) / float64(iring)
	case pix < npix-ncap:
		ip := pix - ncap
		tmp := ip / (4 * nside)
		iring := tmp + nside
		iphi := ip - tmp*4*nside + 1
		fodd := 0.5
		if (iring+nside)&1 == 1 {
			fodd = 1
		}
		z = float64(2*nside-iring) * fact1
		phi = (float64(iphi) - fodd) * math.Pi * 0.75 * fact1
	default:
		ip := npix - pix
		iring := (1 + isqrt(2*ip-1)) >> 1
		iphi := 4*iring + 1 - (ip - 2*iring*(iring-1))
		z = -1 + float64(iring*iring)*fact2
		phi = (float64(iphi) - 0.5) * (math.Pi / 2) / float64(iring)
	}
	return math.Acos(z), phi
}

func pix2angNest(nside, pix int) (float64, float64) {
	var (
		npix       = nside2npix(nside)
		fact2      = 4 / float64(npix)
		fact1      = float64(2*nside) * fact2
		ix, iy, fc = nest2xyf(nside, pix)
		jr         = jrll[fc]*nside - ix - iy - 1

		nr, kshift int
		z          float64
	)
	switch {
	case jr < nside:
		nr = jr
		z = 1 - float64(nr*nr)*fact2
	case jr > 3*nside:
		nr = 4*nside - jr
		z = float64(nr*nr)*fact2 - 1
	default:
		nr = nside
		z = float64(2*nside-jr) * fact1
		kshift = (jr - nside) & 1
	}
	jp := (jpll[fc]*nr + ix - iy + 1 + kshift) / 2
	if jp > 4*nside {
		jp -= 4 * nside
	}
	if jp < 1 {
		jp += 4 * nside
	}
	phi := (float64(jp) - float64(kshift+1)*0.5) * (math.Pi / 2 / float64(nr))
	return math.Acos(z), phi
}

// pixelRaDec returns the equatorial coordinates (degrees) of a RING pixel.
func pixelRaDec(nside, pix int) (float64, float64) {
	theta, phi := pix2angRing(nside, pix)
	return phi * 180 / math.Pi, 90 - theta*180/math.Pi
}
