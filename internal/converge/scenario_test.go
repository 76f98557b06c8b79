package converge

import (
	"context"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/terassyi/fbinstall/internal/plan"
	"github.com/terassyi/fbinstall/internal/platform"
	"github.com/terassyi/fbinstall/internal/registry"
	"github.com/terassyi/fbinstall/internal/resource"
)

var _ = ginkgo.Describe("Converging a Filebeat installation", func() {
	var (
		host     *fakeHost
		services *registry.Services
		planner  *plan.Planner
		executor *Executor
		spec     *resource.FilebeatSpec
	)

	ginkgo.BeforeEach(func() {
		host = newFakeHost()
		services = registry.NewServices()
		planner = plan.NewPlanner(services, "/cache")
		executor = NewExecutor(host.providers(), services)
		spec = resource.DefaultFilebeatSpec()
	})

	apply := func(info platform.Info) *Report {
		p, err := planner.Create(spec, info)
		Expect(err).NotTo(HaveOccurred())
		report, err := executor.Run(context.Background(), p)
		Expect(err).NotTo(HaveOccurred())
		return report
	}

	ginkgo.DescribeTable("is idempotent on every supported platform",
		func(info platform.Info) {
			ginkgo.By("Converging a fresh host")
			first := apply(info)
			Expect(first.Changed()).To(BeTrue())

			ginkgo.By("Converging the already converged host")
			host.calls = nil
			second := apply(info)
			Expect(second.Changed()).To(BeFalse())
			Expect(host.callsWithPrefix("restart")).To(BeEmpty())
			Expect(host.callsWithPrefix("script")).To(BeEmpty())
			Expect(host.callsWithPrefix("fetch")).To(BeEmpty())
		},
		ginkgo.Entry("ubuntu", platform.Info{Name: "ubuntu", Family: platform.FamilyDebian}),
		ginkgo.Entry("centos", platform.Info{Name: "centos", Family: platform.FamilyRHEL}),
		ginkgo.Entry("fedora", platform.Info{Name: "fedora", Family: platform.FamilyFedora}),
		ginkgo.Entry("amazon", platform.Info{Name: "amazon", Family: platform.FamilyAmazon}),
		ginkgo.Entry("xcp", platform.Info{Name: platform.NameXCP, Family: platform.FamilyXCP}),
		ginkgo.Entry("macos", platform.Info{Name: platform.NameMacOS, Family: platform.FamilyMacOS}),
		ginkgo.Entry("windows", platform.Info{Name: platform.NameWindows, Family: platform.FamilyWindows}),
	)

	ginkgo.Context("on ubuntu with defaults", func() {
		ginkgo.It("registers the repository, pins, installs and restarts once", func() {
			apply(platform.Info{Name: "ubuntu", Family: platform.FamilyDebian})

			Expect(host.calls).To(Equal([]string{
				"repo apt",
				"pin filebeat",
				"install apt filebeat",
				"mkdir /var/log/filebeat",
				"mkdir /etc/filebeat/conf.d",
				"restart filebeat",
			}))
			Expect(host.packages).To(HaveKeyWithValue("filebeat", "7.6.2"))
		})

		ginkgo.It("does not restart when the service is disabled", func() {
			spec.DisableService = true
			apply(platform.Info{Name: "ubuntu", Family: platform.FamilyDebian})
			Expect(host.callsWithPrefix("restart")).To(BeEmpty())
		})

		ginkgo.It("restarts after an upgrade", func() {
			apply(platform.Info{Name: "ubuntu", Family: platform.FamilyDebian})
			host.calls = nil

			spec.Version = "7.17.0"
			report := apply(platform.Info{Name: "ubuntu", Family: platform.FamilyDebian})
			Expect(report.Changed()).To(BeTrue())
			Expect(host.callsWithPrefix("restart")).To(HaveLen(1))
			Expect(host.packages).To(HaveKeyWithValue("filebeat", "7.17.0"))
		})
	})

	ginkgo.Context("on windows", func() {
		ginkgo.It("runs the service install script immediately after unzipping", func() {
			apply(platform.Info{Name: platform.NameWindows, Family: platform.FamilyWindows})

			Expect(host.calls).To(Equal([]string{
				"fetch https://artifacts.elastic.co/downloads/beats/filebeat/filebeat-7.6.2-windows-x86_64.zip",
				"mkdir C:/opt/filebeat",
				"extract /cache/filebeat-7.6.2-windows-x86_64.zip",
				"script C:/opt/filebeat/filebeat-7.6.2-windows-x86_64/install-service-filebeat.ps1",
				"mkdir C:/opt/filebeat/filebeat-7.6.2-windows-x86_64/logs",
				"mkdir C:/opt/filebeat/filebeat-7.6.2-windows-x86_64/conf.d",
			}))
		})
	})

	ginkgo.Context("with deleteProspectorsDir", func() {
		ginkgo.It("purges and recreates the prospectors directory on every run", func() {
			spec.DeleteProspectorsDir = true
			apply(platform.Info{Name: "centos", Family: platform.FamilyRHEL})
			host.files["/etc/filebeat/conf.d/stale.yml"] = "old"

			host.calls = nil
			apply(platform.Info{Name: "centos", Family: platform.FamilyRHEL})
			Expect(host.calls).To(ContainElements("rmdir /etc/filebeat/conf.d", "mkdir /etc/filebeat/conf.d"))
			Expect(host.files).NotTo(HaveKey("/etc/filebeat/conf.d/stale.yml"))
		})
	})

	ginkgo.Context("on an unsupported platform", func() {
		ginkgo.It("only ensures the log and prospectors directories", func() {
			apply(platform.Info{Name: "arch", Family: platform.FamilyUnknown})
			Expect(host.calls).To(Equal([]string{"mkdir /var/log/filebeat", "mkdir /etc/filebeat/conf.d"}))
		})
	})

	ginkgo.Context("when removing", func() {
		ginkgo.It("stops the service declared by an earlier create", func() {
			apply(platform.Info{Name: "ubuntu", Family: platform.FamilyDebian})
			host.calls = nil

			p, err := planner.Delete(spec)
			Expect(err).NotTo(HaveOccurred())
			_, err = executor.Run(context.Background(), p)
			Expect(err).NotTo(HaveOccurred())

			Expect(host.running).To(HaveKeyWithValue("filebeat", false))
			Expect(host.packages).NotTo(HaveKey("filebeat"))
			entry, ok := services.Lookup("filebeat")
			Expect(ok).To(BeTrue())
			Expect(entry.Refs).To(Equal(2))
		})
	})
})
