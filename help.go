package main

const helpText = `Gravitational wave follow-up tiling and scheduling tool

skytile ranks the tiles of a telescope survey grid by the probability they
cover in a localization sky map, and plans their observation from an
observatory starting at a trigger time.

Input formats:

* sky map: HEALPix FITS binary table (optionally gzip compressed), RING or
  NESTED ordering, one probability per pixel.
* tile catalog: text file with a header line naming at least the columns
  ID, ra_center and dec_center (degrees). Lines starting with # are ignored.
* tile indexes: one file per resolution (64, 128, 256, 512, 1024, 2048),
  named <prefix><resolution>.db (sqlite) or <prefix><resolution>.dat (text:
  line k lists the RING pixels of tile k).
* calibration: two or three columns, integration time (seconds), limiting
  magnitude and optionally its error.

Requested resolutions are rounded to the nearest power of two and clamped
between 64 and 2048.

Configuration:

skytile accepts via the "config" flag a toml configuration file. Options given
on the command line take precedence over the file.

* default : input and output of skytile
  - skymap       = sky map file
  - tiles        = tile catalog file
  - index-dir    = directory of the tile indexes
  - index-prefix = file name prefix of the tile indexes
  - resolution   = resolution of the ranking (0: native)
  - cutoff       = cumulative probability of the tiles worth observing
  - format       = text, json or yaml
  - output       = file where the plan is written

* site    : observatory
  - name       = name or alias of a registered observatory
  - latitude   = latitude of a custom observatory (degrees)
  - longitude  = longitude of a custom observatory (degrees, east positive)
  - elevation  = elevation of a custom observatory (meters)
  - utc-offset = hours between local time and UTC

* schedule: observation plan
  - duration    = observation time budget
  - integration = time spent on each tile
  - trigger     = trigger time (GPS seconds or RFC3339)

Examples:

# rank the tiles of a sky map at resolution 256
$ skytile rank -r 256 --index-dir /var/skytile/indexes bayestar.fits.gz

# plan one night at palomar with 120s per tile
$ skytile schedule -s palomar -t tiles.txt --trigger 1187008882.4 \
  --duration 12h --integration 120s -o plan.txt bayestar.fits.gz

# search area and tile of a known source
$ skytile area --ra 197.45 --dec -23.38 bayestar.fits.gz
$ skytile source --ra 197.45 --dec -23.38 -t tiles.txt bayestar.fits.gz

# use a configuration file instead of command line options
$ skytile -c /usr/local/etc/skytile/ztf.toml schedule
`
