/*
ieee9.go The WSCC 9-bus test case. Generator, transformer, line and load
parameters follow the common published data set: three generation buses at
16.5, 18 and 13.8 kV coupled through step-up transformers to a 230 kV ring,
two PV machines plus a slack, three loads. Ohm and percent-impedance values
are converted to per-unit on the 100 MVA system base here, so the literal
source figures stay visible.
*/

package powernet

// IEEE9 constructs the fixed 9-bus test network.
func IEEE9() (*Network, error) {
	buses := []Bus{
		{ID: 1, Name: "Bus 1 - Gen 1", NominalKV: 16.5, Type: Slack, Vm: 1.04, VaDeg: 0},
		{ID: 2, Name: "Bus 2 - Gen 2", NominalKV: 18.0},
		{ID: 3, Name: "Bus 3 - Gen 3", NominalKV: 13.8},
		{ID: 4, Name: "Bus 4", NominalKV: 230.0},
		{ID: 5, Name: "Bus 5", NominalKV: 230.0},
		{ID: 6, Name: "Bus 6", NominalKV: 230.0},
		{ID: 7, Name: "Bus 7", NominalKV: 230.0},
		{ID: 8, Name: "Bus 8", NominalKV: 230.0},
		{ID: 9, Name: "Bus 9", NominalKV: 230.0},
	}

	gens := []Generator{
		{Name: "Gen 2", Bus: 2, PMW: 163.0, VmPu: 1.025, PMinMW: 10, PMaxMW: 200},
		{Name: "Gen 3", Bus: 3, PMW: 85.0, VmPu: 1.025, PMinMW: 10, PMaxMW: 150},
	}

	// 230 kV impedance base on 100 MVA.
	zBase := 230.0 * 230.0 / SystemBaseMVA

	line := func(name string, from, to int, rOhm, xOhm float64) Branch {
		return Branch{
			Name:      name,
			From:      from,
			To:        to,
			R:         rOhm / zBase,
			X:         xOhm / zBase,
			RatingMVA: 250.0,
		}
	}

	// Transformers are given by short-circuit voltage in percent of their
	// 100 MVA rating; the resistive part is negligible in this case.
	trafo := func(name string, hv, lv int, vkPercent float64) Branch {
		return Branch{
			Name:      name,
			From:      hv,
			To:        lv,
			X:         vkPercent / 100.0,
			Tap:       1.0,
			RatingMVA: 100.0,
		}
	}

	branches := []Branch{
		trafo("Trafo 1-4", 4, 1, 5.76),
		trafo("Trafo 2-7", 7, 2, 6.25),
		trafo("Trafo 3-9", 9, 3, 5.86),
		line("Line 4-5", 4, 5, 1.0, 17.0),
		line("Line 4-6", 4, 6, 1.7, 20.0),
		line("Line 5-7", 5, 7, 3.2, 16.1),
		line("Line 6-9", 6, 9, 3.9, 17.0),
		line("Line 7-8", 7, 8, 0.85, 7.2),
		line("Line 8-9", 8, 9, 1.19, 10.08),
	}

	loads := []Load{
		{Name: "Load 5", Bus: 5, PMW: 125.0, QMVAr: 50.0},
		{Name: "Load 6", Bus: 6, PMW: 90.0, QMVAr: 30.0},
		{Name: "Load 8", Bus: 8, PMW: 100.0, QMVAr: 35.0},
	}

	return New("IEEE 9 Bus System", buses, branches, gens, loads)
}
