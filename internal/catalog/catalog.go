// Package catalog holds the static metadata for the NC DAC Offender
// Public Information file family: the twelve published fixed-width
// files, their display names, and the checksums of the official
// distributions. The catalog is pure data; downloading and archive
// extraction are handled outside this tool.
package catalog

import "strings"

// DefaultReference is the file that serves as the primary-key source
// for the whole database unless overridden on the command line.
const DefaultReference = "OFNT3AA1"

// FileMeta describes one published source file.
type FileMeta struct {
	ID          string // e.g. "OFNT3AA1"
	Name        string // e.g. "Offender Profile"
	DownloadURL string
	SHA256      string // ZIP archive checksum
	DESSHA256   string // decompressed .des descriptor checksum
	DATSHA256   string // decompressed .dat data checksum
}

// TableName returns the snake_case relational table name for this file.
func (f FileMeta) TableName() string {
	return ToSnakeCase(f.Name)
}

// Files lists the twelve published file types. URLs and checksums are
// from the official download index; the checksums let an external
// acquisition step verify the archives before this tool runs.
var Files = []FileMeta{
	{
		ID:          "OFNT3AA1",
		Name:        "Offender Profile",
		DownloadURL: "https://www.doc.state.nc.us/offenders/OFNT3AA1.zip",
		SHA256:      "95648caeaa88969b992cdcb1b68806e5fdee768313481eb01b5940fbbe4ec74a",
		DESSHA256:   "7fe77769b1590a6731d215960e2fae1161e0f6aaa4891b967ead3849745f3310",
		DATSHA256:   "53d25ad346658d6c4060ddb8e61f1af47135d0ad2c927813eacccb891c82f4d5",
	},
	{
		ID:          "APPT7AA1",
		Name:        "Probation and Parole Client Profile",
		DownloadURL: "https://www.doc.state.nc.us/offenders/APPT7AA1.zip",
		SHA256:      "acba721152e5a69780b8c31b45a2fb13c576592da51454d7781e808f4f56405e",
		DESSHA256:   "b00252add83de8179f4a0644a3d528bb7058d23325647be6bbd9a072672dd7a0",
		DATSHA256:   "95b1e3b2afa3445dbeacd0c3a3795ad40a70fe35a3de301ac643bff2e158bac4",
	},
	{
		ID:          "APPT9BJ1",
		Name:        "Impact Scheduling Request",
		DownloadURL: "https://www.doc.state.nc.us/offenders/APPT9BJ1.zip",
		SHA256:      "b60900557c42801731a4d9fa8d8b967194e672088d69e3ec61fa647e0968f9f3",
		DESSHA256:   "bbfe4df95ae45c050c2c67cfcfda92cb968ec4a35e969494b5726ee713f4afce",
		DATSHA256:   "3ac0c5dfcb3cb0c67d754dfea20de2aa23814909a4dfc1659bc2f51af85b7830",
	},
	{
		ID:          "INMT4AA1",
		Name:        "Inmate Profile",
		DownloadURL: "https://www.doc.state.nc.us/offenders/INMT4AA1.zip",
		SHA256:      "95cc430a8730255285bc01be9ad8c92ad48d31d71ba904e40c1f9cdb6c3a5bb1",
		DESSHA256:   "8eec828036226856d1be9ec976913b6d159c9f8411a1d495343e4801d8a9c07c",
		DATSHA256:   "fdb01a4bb931258691c26627ca9a0e07820f275d55ab076918ea09c5ae650ac1",
	},
	{
		ID:          "INMT4BB1",
		Name:        "Sentence Computations",
		DownloadURL: "https://www.doc.state.nc.us/offenders/INMT4BB1.zip",
		SHA256:      "2bf9c1f549f932ba7209148138af752099fe8e79b54998c64ff0b5e6ceb03842",
		DESSHA256:   "ba8875855bfc81a5e0fae06580bffe98ed6fa5f6e93018b4f4d35d3fb63ab847",
		DATSHA256:   "ba7f9d21412fca709a13784b7a31e814bbc8281f3092b2d1ed4c84dea289f548",
	},
	{
		ID:          "INMT4CA1",
		Name:        "Parole Analyst Review",
		DownloadURL: "https://www.doc.state.nc.us/offenders/INMT4CA1.zip",
		SHA256:      "79ee997f22378e5f0909cba01d5da4e2f040b0a415122c98df89c0128a0d51b5",
		DESSHA256:   "786d26856e80dfc24ff3352680d3c444acba56fb42b40eac82b7b2ca1c8debcf",
		DATSHA256:   "2e32ca56e8a7325fd39dbeb5d3207fd2949932490a93158ae8b740b28a22c2fe",
	},
	{
		ID:          "INMT9CF1",
		Name:        "Disciplinary Infractions",
		DownloadURL: "https://www.doc.state.nc.us/offenders/INMT9CF1.zip",
		SHA256:      "8abba1dca907da4028f5714d5771b63cd6f846a5ffea64f6fc6f732c23c00d77",
		DESSHA256:   "9b86292ef8d90af5662b83d3e84621594d885fd6ebd748a4095f1e3169c9c7b5",
		DATSHA256:   "de4f629d260c9d9fdf6f150a72e79d7923013f2cf6eb991cae66ec1ca7bffb13",
	},
	{
		ID:          "OFNT1BA1",
		Name:        "Financial Obligation",
		DownloadURL: "https://www.doc.state.nc.us/offenders/OFNT1BA1.zip",
		SHA256:      "b960f1e304566030c9a675b8882c3ccb6e0009cdea54be2ce20968bb4fb397b6",
		DESSHA256:   "3146f4c95790d220614140a291bf4ae7d99914d2bb4030db3640bdc3ad4a47f9",
		DATSHA256:   "0ccac128e63570c05fb70eb2459cfd3440187f7b4f33a907b2954b41780a6460",
	},
	{
		// The published index spells it with three m's.
		ID:          "OFNT3BB1",
		Name:        "Court Commmitment",
		DownloadURL: "https://www.doc.state.nc.us/offenders/OFNT3BB1.zip",
		SHA256:      "09a4998925675643ed4130fca938bd04cb9c746965b8eec177890b495f817591",
		DESSHA256:   "857ccc75e587e7c15436ad8dca7414764ab08fc606392556d7c3b2fe3b94e44e",
		DATSHA256:   "290265eeceecf990d73bdfcc583025d9c07e8c201988a509d07da00e4f2a7b36",
	},
	{
		ID:          "OFNT3CE1",
		Name:        "Sentence Component",
		DownloadURL: "https://www.doc.state.nc.us/offenders/OFNT3CE1.zip",
		SHA256:      "6e346c3d3cd435474d36061626b1d519811de7d69ce0d4a610a4f9ccfae44e19",
		DESSHA256:   "f0f3c7bf3df7d2749da40021cacba35aece16fdd69bc7fc173557c23289c5453",
		DATSHA256:   "23affe4d8b2e1c6c1b3fb1bf7d7305793e9a13e196333d0f026d6d47a9073af3",
	},
	{
		ID:          "OFNT3DE1",
		Name:        "Special Conditions and Sanctions",
		DownloadURL: "https://www.doc.state.nc.us/offenders/OFNT3DE1.zip",
		SHA256:      "b4eecb632506fe291da77aca9cb6a9c1eec27a9c2b489260ed22b091e2247043",
		DESSHA256:   "2f895e17639df2b1c4e178577036e09d9f6e8b5c5d3fdf7a4a3ee4ae1dbab08c",
		DATSHA256:   "feaf0e3d993bf7e92816a9873a13ab778efe0d0b32b80a2279a15b933b686dd0",
	},
	{
		ID:          "OFNT9BE1",
		Name:        "Warrant Issued",
		DownloadURL: "https://www.doc.state.nc.us/offenders/OFNT9BE1.zip",
		SHA256:      "00b482035dd4b0b08f0f5de40b7f3e46fe266ffdf9c04b81b5f0ccef9c1278a3",
		DESSHA256:   "22f2036f7e18a3329af128f9813259fc1946277f3ac3de17d42e88a516a3038d",
		DATSHA256:   "f3d01914f6e58f04c6fde243372bc7f2c6e52d2a6201501778185f15bf6cc7a6",
	},
}

// ByID returns the metadata for a file id, or false if unknown.
// Lookups are case-sensitive; the published ids are uppercase.
func ByID(id string) (FileMeta, bool) {
	for _, f := range Files {
		if f.ID == id {
			return f, true
		}
	}
	return FileMeta{}, false
}

// KeyCandidates are the field codes that can serve as the offender key,
// in preference order. Every published file carries exactly one.
var KeyCandidates = []string{"CMDORNUM", "CIDORNUM", "CDDORNUM"}

// KeyField returns the first key candidate present among the given
// field names, or "" if none is.
func KeyField(fields []string) string {
	present := make(map[string]bool, len(fields))
	for _, f := range fields {
		present[f] = true
	}
	for _, k := range KeyCandidates {
		if present[k] {
			return k
		}
	}
	return ""
}

// ToSnakeCase lowercases s, replaces runs of non-alphanumeric
// characters with single underscores, and strips leading/trailing
// underscores. Used to derive table names from display names.
func ToSnakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevUnderscore := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			prevUnderscore = false
			continue
		}
		if !prevUnderscore {
			b.WriteByte('_')
			prevUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}
