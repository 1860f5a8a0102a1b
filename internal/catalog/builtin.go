package catalog

import "github.com/stanercelik/PolySleep-sub003/internal/domain"

func hm(h, m int) int { return h*60 + m }

func core(start, minutes int) BlockTemplate {
	return BlockTemplate{StartMinute: start, DurationMinutes: minutes, IsCore: true}
}

func nap(start int) BlockTemplate {
	return BlockTemplate{StartMinute: start, DurationMinutes: 20}
}

var builtins = []Template{
	{
		Key:  domain.ScheduleMonophasic,
		Name: "Monophasic",
		Descriptions: map[string]string{
			"en": "One consolidated night of sleep.",
			"tr": "Tek parça gece uykusu.",
		},
		Blocks: []BlockTemplate{core(hm(23, 0), 480)},
	},
	{
		Key:  domain.ScheduleBiphasic,
		Name: "Biphasic",
		Descriptions: map[string]string{
			"en": "A shortened night core plus one afternoon nap.",
			"tr": "Kısaltılmış gece uykusu ve bir öğleden sonra şekerlemesi.",
		},
		Blocks: []BlockTemplate{core(hm(23, 30), 360), nap(hm(14, 0))},
	},
	{
		Key:  domain.ScheduleSiesta,
		Name: "Siesta",
		Descriptions: map[string]string{
			"en": "Night core with a long early-afternoon siesta.",
			"tr": "Gece uykusu ve uzun bir öğle uykusu.",
		},
		Blocks: []BlockTemplate{core(hm(0, 0), 360), core(hm(14, 0), 90)},
	},
	{
		Key:  domain.ScheduleSegmented,
		Name: "Segmented",
		Descriptions: map[string]string{
			"en": "Night sleep split into two cores with a waking gap.",
			"tr": "Arada uyanıklık olan iki parçalı gece uykusu.",
		},
		Blocks: []BlockTemplate{core(hm(21, 0), 210), core(hm(2, 30), 180)},
	},
	{
		Key:  domain.ScheduleTriphasic,
		Name: "Triphasic",
		Descriptions: map[string]string{
			"en": "Three 90-minute cores around dusk, dawn and afternoon.",
			"tr": "Akşam, şafak ve öğleden sonra üç adet 90 dakikalık çekirdek uyku.",
		},
		Blocks: []BlockTemplate{core(hm(21, 30), 90), core(hm(5, 0), 90), core(hm(13, 30), 90)},
	},
	{
		Key:  domain.ScheduleEverymanE1,
		Name: "Everyman E1",
		Descriptions: map[string]string{
			"en": "Six-hour core and one nap.",
			"tr": "Altı saatlik çekirdek uyku ve bir şekerleme.",
		},
		Blocks: []BlockTemplate{core(hm(23, 0), 360), nap(hm(14, 0))},
	},
	{
		Key:  domain.ScheduleEverymanE2,
		Name: "Everyman E2",
		Descriptions: map[string]string{
			"en": "4.5-hour core and two naps.",
			"tr": "4,5 saatlik çekirdek uyku ve iki şekerleme.",
		},
		Blocks: []BlockTemplate{core(hm(0, 0), 270), nap(hm(8, 30)), nap(hm(14, 30))},
	},
	{
		Key:  domain.ScheduleEverymanE3,
		Name: "Everyman E3",
		Descriptions: map[string]string{
			"en": "3.5-hour core and three naps.",
			"tr": "3,5 saatlik çekirdek uyku ve üç şekerleme.",
		},
		Blocks: []BlockTemplate{core(hm(23, 0), 210), nap(hm(6, 30)), nap(hm(11, 30)), nap(hm(16, 30))},
	},
	{
		Key:  domain.ScheduleEverymanE4,
		Name: "Everyman E4",
		Descriptions: map[string]string{
			"en": "90-minute core and four naps.",
			"tr": "90 dakikalık çekirdek uyku ve dört şekerleme.",
		},
		Blocks: []BlockTemplate{core(hm(1, 0), 90), nap(hm(6, 0)), nap(hm(10, 0)), nap(hm(14, 0)), nap(hm(18, 0))},
	},
	{
		Key:  domain.ScheduleDualCore1,
		Name: "Dual Core 1",
		Descriptions: map[string]string{
			"en": "Two night cores and one nap.",
			"tr": "İki gece çekirdeği ve bir şekerleme.",
		},
		Blocks: []BlockTemplate{core(hm(21, 0), 200), core(hm(4, 30), 100), nap(hm(13, 30))},
	},
	{
		Key:  domain.ScheduleDualCore2,
		Name: "Dual Core 2",
		Descriptions: map[string]string{
			"en": "Two 90-minute cores and two naps.",
			"tr": "İki adet 90 dakikalık çekirdek ve iki şekerleme.",
		},
		Blocks: []BlockTemplate{core(hm(21, 30), 90), core(hm(4, 0), 90), nap(hm(9, 0)), nap(hm(14, 0))},
	},
	{
		Key:  domain.ScheduleUberman,
		Name: "Uberman",
		Descriptions: map[string]string{
			"en": "Six 20-minute naps spaced four hours apart.",
			"tr": "Dört saat arayla altı adet 20 dakikalık şekerleme.",
		},
		Blocks: []BlockTemplate{
			nap(hm(0, 0)), nap(hm(4, 0)), nap(hm(8, 0)),
			nap(hm(12, 0)), nap(hm(16, 0)), nap(hm(20, 0)),
		},
	},
	{
		Key:  domain.ScheduleDymaxion,
		Name: "Dymaxion",
		Descriptions: map[string]string{
			"en": "Four 30-minute naps every six hours.",
			"tr": "Altı saatte bir dört adet 30 dakikalık şekerleme.",
		},
		Blocks: []BlockTemplate{
			{StartMinute: hm(0, 0), DurationMinutes: 30},
			{StartMinute: hm(6, 0), DurationMinutes: 30},
			{StartMinute: hm(12, 0), DurationMinutes: 30},
			{StartMinute: hm(18, 0), DurationMinutes: 30},
		},
	},
	{
		Key:  domain.ScheduleTesla,
		Name: "Tesla",
		Descriptions: map[string]string{
			"en": "Five 20-minute naps, under two hours of sleep a day.",
			"tr": "Günde iki saatten az, beş adet 20 dakikalık şekerleme.",
		},
		Blocks: []BlockTemplate{
			nap(hm(2, 0)), nap(hm(6, 40)), nap(hm(11, 20)), nap(hm(16, 0)), nap(hm(20, 40)),
		},
	},
}
