package bgen

// Choose k from n items can be done in this many ways. Originally derived from
// github.com/limix/bgen /src/util/choose.c
//
// For a sample with ploidy Z and K alleles there are Choose(Z+K-1, K-1)
// unphased genotypes.
func Choose(n, k int) int {
	if n == 3 && k == 1 {
		// Fastest path, since this is the usual result
		return 3
	} else if k == 1 {
		return n
	}

	ans := 1

	if k > n-k {
		k = n - k
	}

	for j := 1; j <= k; j++ {
		if n%j == 0 {
			ans *= n / j
		} else if ans%j == 0 {
			ans = ans / j * n
		} else {
			ans = (ans * n) / j
		}

		n--
	}

	return ans
}

// WhichSQLiteDriver names the database/sql driver used for .bgi files in this
// build.
func WhichSQLiteDriver() string {
	return whichSQLiteDriver
}
